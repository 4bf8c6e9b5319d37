// Package game coordinates the world above the single-zone level:
// session lifecycle, cross-zone transitions, dungeon instancing and
// periodic persistence. Zone runtimes own their state; the manager only
// talks to them through their command queues.
package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shardworld/server/internal/config"
	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/persist"
	"github.com/shardworld/server/internal/scripting"
	"github.com/shardworld/server/internal/world"
	"github.com/shardworld/server/internal/zone"
)

// saveInterval is how often live sessions and terrain diffs are flushed.
const saveInterval = 30 * time.Second

// Manager owns the static zone runtimes and everything that spans them.
type Manager struct {
	log     *zap.Logger
	cfg     *config.Config
	catalog *data.Catalog
	ledger  ledger.Ledger
	store   persist.CharacterStore
	chunks  persist.ChunkStore
	parties *world.PartyManager

	zones map[string]*zone.Runtime

	mu       sync.Mutex
	sessions map[string]*Session     // wallet → session
	dungeons map[string]*dungeonRun  // instance id → run
	rng      *rand.Rand
}

// NewManager builds one runtime per defined zone. Each runtime gets its
// own script engine; Lua VMs are never shared across goroutines.
func NewManager(cfg *config.Config, catalog *data.Catalog, lg ledger.Ledger,
	store persist.CharacterStore, chunks persist.ChunkStore, log *zap.Logger) (*Manager, error) {

	m := &Manager{
		log:      log,
		cfg:      cfg,
		catalog:  catalog,
		ledger:   lg,
		store:    store,
		chunks:   chunks,
		parties:  world.NewPartyManager(cfg.Game.PartyMaxSize),
		zones:    make(map[string]*zone.Runtime),
		sessions: make(map[string]*Session),
		dungeons: make(map[string]*dungeonRun),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, id := range catalog.Zones.IDs() {
		def := catalog.Zones.Get(id)
		deps, err := m.zoneDeps(log.With(zap.String("zone", id)))
		if err != nil {
			return nil, err
		}
		rt := zone.NewRuntime(def, deps)
		if chunks != nil {
			saved, err := chunks.LoadChunks(context.Background(), id)
			if err != nil {
				return nil, fmt.Errorf("load chunks for %s: %w", id, err)
			}
			rt.Terrain().ApplyChunks(saved)
		}
		m.zones[id] = rt
	}
	if len(m.zones) == 0 {
		return nil, fmt.Errorf("no zones defined")
	}
	return m, nil
}

func (m *Manager) zoneDeps(log *zap.Logger) (zone.Deps, error) {
	scripts, err := scripting.NewEngine(m.cfg.Server.ScriptDir, log)
	if err != nil {
		return zone.Deps{}, fmt.Errorf("script engine: %w", err)
	}
	return zone.Deps{
		Log:           log,
		Ledger:        m.ledger,
		Catalog:       m.catalog,
		Scripts:       scripts,
		Roster:        m.parties,
		Reloc:         m,
		Game:          m.cfg.Game,
		Rates:         m.cfg.Rates,
		LedgerTimeout: m.cfg.Ledger.CallTimeout,
	}, nil
}

// Run drives every static zone plus the persistence loop until ctx is
// cancelled.
func (m *Manager) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for id, rt := range m.zones {
		rt := rt
		g.Go(func() error { return rt.Run(gctx) })
		m.log.Info("zone scheduled", zap.String("zone", id))
	}
	g.Go(func() error { return m.saveLoop(gctx) })
	return g.Wait()
}

// Zone resolves a zone or dungeon instance by id, or nil.
func (m *Manager) Zone(id string) *zone.Runtime {
	if rt, ok := m.zones[id]; ok {
		return rt
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.dungeons[id]; ok {
		return run.rt
	}
	return nil
}

// Parties exposes the party manager to the edge layer.
func (m *Manager) Parties() *world.PartyManager {
	return m.parties
}

// defaultZone is where fresh characters and orphaned respawns land.
func (m *Manager) defaultZone() *zone.Runtime {
	return m.zones[m.catalog.Zones.IDs()[0]]
}

// RespawnHome reinserts a respawned player into their home zone. Called
// from a zone tick loop, so all blocking work happens on a fresh
// goroutine.
func (m *Manager) RespawnHome(e *world.Entity, fromZone string) {
	go func() {
		home := m.zones[e.Player.HomeZone]
		if home == nil {
			home = m.defaultZone()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := home.ExecFunc(ctx, func(rt *zone.Runtime) error {
			return rt.InsertPlayer(e, e.Player.HomeX, e.Player.HomeY)
		})
		if err != nil {
			m.log.Error("home respawn insert failed",
				zap.String("zone", home.ID()),
				zap.String("player", e.Name),
				zap.Error(err))
			return
		}
		m.setSessionZone(e.Player.Wallet, home.ID())
		m.log.Info("player respawned home",
			zap.String("player", e.Name),
			zap.String("from", fromZone),
			zap.String("zone", home.ID()))
	}()
}

// saveLoop periodically flushes live characters and modified terrain.
func (m *Manager) saveLoop(ctx context.Context) error {
	ticker := time.NewTicker(saveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.saveAll(ctx)
		}
	}
}

// Flush saves every live session and modified chunk immediately. Called
// on shutdown in addition to the periodic loop.
func (m *Manager) Flush(ctx context.Context) {
	m.saveAll(ctx)
}

func (m *Manager) saveAll(ctx context.Context) {
	for _, s := range m.snapshotSessions() {
		if err := m.saveSession(ctx, s); err != nil {
			m.log.Warn("session save failed",
				zap.String("wallet", s.Wallet),
				zap.Error(err))
		}
	}
	if m.chunks == nil {
		return
	}
	for id, rt := range m.zones {
		var mods []world.ChunkState
		err := rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			mods = z.Terrain().ModifiedChunks()
			return nil
		})
		if err != nil {
			continue
		}
		if len(mods) == 0 {
			continue
		}
		if err := m.chunks.SaveChunks(ctx, id, mods); err != nil {
			m.log.Warn("chunk save failed", zap.String("zone", id), zap.Error(err))
		}
	}
}

// saveSession snapshots a live character through its zone's queue and
// writes it to the store.
func (m *Manager) saveSession(ctx context.Context, s *Session) error {
	rt := m.Zone(s.ZoneID)
	if rt == nil {
		return fmt.Errorf("zone %s gone", s.ZoneID)
	}
	var c *persist.Character
	err := rt.ExecFunc(ctx, func(z *zone.Runtime) error {
		e := z.Entity(s.EntityID)
		if e == nil || e.Player == nil {
			return fmt.Errorf("entity %d missing", s.EntityID)
		}
		c = snapshotCharacter(e, s.Character, z.ID())
		return nil
	})
	if err != nil {
		return err
	}
	return m.store.Save(ctx, c)
}
