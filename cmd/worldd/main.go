package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/shardworld/server/internal/config"
	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/game"
	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/persist"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            shardworld  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        authoritative world server         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("SHARDWORLD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Storage: PostgreSQL when a DSN is configured, in-memory otherwise
	printSection("storage")

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()

	var (
		charStore  persist.CharacterStore
		chunkStore persist.ChunkStore
		assets     ledger.Ledger
	)
	// The real asset ledger adapter is wired by the deployment; the
	// in-process ledger stands in for it here.
	assets = ledger.WithTimeout(ledger.NewMemory(), cfg.Ledger.CallTimeout)

	if cfg.Database.DSN != "" {
		db, err := persist.NewDB(bootCtx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("postgresql connected")

		if err := persist.RunMigrations(bootCtx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")

		charStore = persist.NewCharacterRepo(db)
		chunkStore = persist.NewChunkRepo(db)
		assets = persist.NewAuditLedger(assets, db, log)
	} else {
		mem := persist.NewMemStore()
		charStore, chunkStore = mem, mem
		printOK("in-memory store (no database dsn)")
	}
	fmt.Println()

	// 4. Load static catalogs
	printSection("catalogs")

	catalog, err := data.LoadCatalog(cfg.Server.DataDir, cfg.Game.XPGrowthRate, cfg.Game.MaxLevel)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	printStat("items", catalog.Items.Count())
	printStat("recipes", catalog.Recipes.Count())
	printStat("loot tables", catalog.Loot.Count())
	printStat("quests", catalog.Quests.Count())
	printStat("techniques", catalog.Techniques.Count())
	printStat("mob templates", catalog.Mobs.Count())
	printStat("zones", catalog.Zones.Count())
	printStat("gate ranks", catalog.Gates.Count())
	fmt.Println()

	// 5. Build the world
	printSection("world")

	mgr, err := game.NewManager(cfg, catalog, assets, charStore, chunkStore, log)
	if err != nil {
		return fmt.Errorf("world manager: %w", err)
	}
	printOK("zone runtimes built")

	// 6. Run until signalled
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printSection("ready")
	printReady(fmt.Sprintf("zone tick %s, dungeon tick %s", cfg.Game.TickInterval, cfg.Dungeon.TickInterval))
	fmt.Println()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mgr.Run(gctx) })
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	log.Info("shutting down, flushing state")
	flushCtx, cancelFlush := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelFlush()
	mgr.Flush(flushCtx)
	log.Info("server stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
