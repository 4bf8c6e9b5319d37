package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shardworld/server/internal/world"
	"github.com/shardworld/server/internal/zone"
)

// dungeonMonitorInterval is how often a running instance is checked for
// clear, timeout and abandonment.
const dungeonMonitorInterval = 2 * time.Second

// dungeonRun is one live gate instance: its runtime, the gate it hangs
// off and the deadline after which it collapses. srcX/srcY is the gate
// position in the source zone; evacuees come back out there.
type dungeonRun struct {
	id         string
	rt         *zone.Runtime
	srcZone    string
	srcX, srcY int
	gateID     world.EntityID
	rank       string
	deadline   time.Time
	cancel     context.CancelFunc
}

// OpenDungeonGate opens the gate nearest the caller (or the specific
// gate when gateID is non-zero): the opener's key is consumed, a fresh
// instance zone spins up and the opener plus eligible party members are
// moved into it. The instance ends when it is cleared, abandoned or its
// rank time limit passes.
func (m *Manager) OpenDungeonGate(ctx context.Context, wallet string, gateID world.EntityID) (string, error) {
	s := m.Session(wallet)
	if s == nil {
		return "", ErrNoSession
	}
	src := m.Zone(s.ZoneID)
	if src == nil {
		return "", fmt.Errorf("zone %s gone", s.ZoneID)
	}

	var (
		dep      *zone.GateDeparture
		deadline time.Time
	)
	err := src.ExecFunc(ctx, func(z *zone.Runtime) error {
		var derr error
		dep, derr = z.OpenGate(wallet, s.EntityID, gateID)
		if derr != nil {
			return derr
		}
		deadline = time.Now().Add(m.cfg.Dungeon.TimeLimit(dep.Rank.Rank))
		z.StampGateExpiry(dep.GateID, deadline.Unix())
		return nil
	})
	if err != nil {
		return "", err
	}

	instanceID := "gate-" + uuid.NewString()
	deps, err := m.zoneDeps(m.log.With(zap.String("zone", instanceID)))
	if err != nil {
		m.abortGateOpen(src, dep)
		return "", err
	}
	deps.TickInterval = m.cfg.Dungeon.TickInterval
	inst := zone.NewGateInstance(instanceID, dep.Rank, dep.Danger, m.instanceSeed(), deps)

	// The loop must be running before the insert below: queued commands
	// only drain inside a tick.
	runCtx, cancel := context.WithCancel(context.Background())
	go func() {
		if rerr := inst.Run(runCtx); rerr != nil && runCtx.Err() == nil {
			m.log.Error("instance loop failed", zap.String("zone", instanceID), zap.Error(rerr))
		}
	}()

	insertCtx, cancelInsert := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelInsert()
	err = inst.ExecFunc(insertCtx, func(z *zone.Runtime) error {
		sx, sy := z.SpawnPoint()
		var inserted []world.EntityID
		for _, e := range dep.Members {
			if ierr := z.InsertPlayer(e, sx, sy); ierr != nil {
				for _, id := range inserted {
					_, _ = z.RemovePlayer(id)
				}
				return ierr
			}
			inserted = append(inserted, e.ID)
		}
		return nil
	})
	if err != nil {
		cancel()
		m.abortGateOpen(src, dep)
		return "", err
	}

	run := &dungeonRun{
		id:       instanceID,
		rt:       inst,
		srcZone:  src.ID(),
		srcX:     dep.GateX,
		srcY:     dep.GateY,
		gateID:   dep.GateID,
		rank:     dep.Rank.Rank,
		deadline: deadline,
		cancel:   cancel,
	}
	m.mu.Lock()
	m.dungeons[instanceID] = run
	m.mu.Unlock()
	for _, e := range dep.Members {
		m.setSessionZone(e.Player.Wallet, instanceID)
	}

	go m.monitorDungeon(run)

	m.log.Info("gate opened",
		zap.String("wallet", wallet),
		zap.String("instance", instanceID),
		zap.String("rank", dep.Rank.Rank),
		zap.Int("members", len(dep.Members)),
		zap.Time("deadline", deadline))
	return instanceID, nil
}

// abortGateOpen undoes a gate opening that could not produce a running
// instance: the players go back to the gate, the gate closes and the
// consumed key is re-minted.
func (m *Manager) abortGateOpen(src *zone.Runtime, dep *zone.GateDeparture) {
	for _, e := range dep.Members {
		m.reinsert(src, e, dep.GateX, dep.GateY)
	}
	src.Post(func(z *zone.Runtime) {
		z.ResetGate(dep.GateID)
	})
	opener := dep.Members[0].Player.Wallet
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Ledger.CallTimeout)
	defer cancel()
	if _, err := m.ledger.MintItem(ctx, opener, dep.Rank.KeyItemID, 1); err != nil {
		m.log.Error("gate key refund failed, ledger inconsistent",
			zap.String("wallet", opener),
			zap.String("item", dep.Rank.KeyItemID),
			zap.Error(err))
	}
}

// monitorDungeon watches a running instance and tears it down when it
// is cleared, past its deadline or empty.
func (m *Manager) monitorDungeon(run *dungeonRun) {
	ticker := time.NewTicker(dungeonMonitorInterval)
	defer ticker.Stop()
	for range ticker.C {
		var cleared bool
		var players []world.EntityID
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := run.rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			cleared = z.Cleared()
			players = z.PlayerIDs()
			return nil
		})
		cancel()
		if err != nil {
			m.log.Warn("instance probe failed", zap.String("zone", run.id), zap.Error(err))
			continue
		}
		switch {
		case cleared:
			m.log.Info("instance cleared", zap.String("zone", run.id), zap.String("rank", run.rank))
			m.closeDungeon(run)
			return
		case len(players) == 0:
			m.log.Info("instance abandoned", zap.String("zone", run.id))
			m.closeDungeon(run)
			return
		case time.Now().After(run.deadline):
			m.log.Info("instance timed out", zap.String("zone", run.id), zap.String("rank", run.rank))
			m.closeDungeon(run)
			return
		}
	}
}

// closeDungeon evacuates everyone still inside, stops the instance loop
// and closes the gate in the source zone.
func (m *Manager) closeDungeon(run *dungeonRun) {
	m.mu.Lock()
	if _, live := m.dungeons[run.id]; !live {
		m.mu.Unlock()
		return
	}
	delete(m.dungeons, run.id)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var evacuees []*world.Entity
	err := run.rt.ExecFunc(ctx, func(z *zone.Runtime) error {
		for _, id := range z.PlayerIDs() {
			if e, rerr := z.RemovePlayer(id); rerr == nil {
				evacuees = append(evacuees, e)
			}
		}
		return nil
	})
	if err != nil {
		m.log.Error("instance evacuation failed", zap.String("zone", run.id), zap.Error(err))
	}
	run.cancel()

	for _, e := range evacuees {
		m.exitToSource(e, run)
	}

	if src := m.Zone(run.srcZone); src != nil {
		gateID := run.gateID
		src.Post(func(z *zone.Runtime) {
			z.ResetGate(gateID)
		})
	}
	m.log.Info("instance closed", zap.String("zone", run.id))
}

// exitToSource inserts an evacuated player back into the zone the gate
// was opened from, near the gate, scattered by the configured exit
// jitter. Falls back to the default zone when the source is gone.
func (m *Manager) exitToSource(e *world.Entity, run *dungeonRun) {
	dst := m.Zone(run.srcZone)
	x, y := run.srcX, run.srcY
	if dst == nil {
		dst = m.defaultZone()
		x, y = e.Player.HomeX, e.Player.HomeY
	}
	if j := m.cfg.Dungeon.ExitJitter; j > 0 {
		m.mu.Lock()
		x += m.rng.Intn(2*j+1) - j
		y += m.rng.Intn(2*j+1) - j
		m.mu.Unlock()
	}
	m.reinsert(dst, e, x, y)
	m.setSessionZone(e.Player.Wallet, dst.ID())
	m.log.Info("player left instance",
		zap.String("player", e.Name),
		zap.String("from", run.id),
		zap.String("zone", dst.ID()))
}

// LeaveDungeon pulls the caller's character out of its current dungeon
// instance and back to the zone the gate was opened from. The instance
// keeps running for anyone still inside.
func (m *Manager) LeaveDungeon(ctx context.Context, wallet string) error {
	s := m.Session(wallet)
	if s == nil {
		return ErrNoSession
	}
	m.mu.Lock()
	run, ok := m.dungeons[s.ZoneID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("not in a dungeon instance")
	}

	var e *world.Entity
	err := run.rt.ExecFunc(ctx, func(z *zone.Runtime) error {
		var rerr error
		e, rerr = z.RemovePlayer(s.EntityID)
		return rerr
	})
	if err != nil {
		return err
	}
	m.exitToSource(e, run)
	return nil
}

func (m *Manager) instanceSeed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Int63()
}
