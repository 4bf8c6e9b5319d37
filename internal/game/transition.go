package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shardworld/server/internal/world"
	"github.com/shardworld/server/internal/zone"
)

// TransitionPortal moves a session's character through a named portal
// into its destination zone. Empty portalName uses the nearest portal.
// The character leaves the source zone first; if the destination insert
// fails it is put back where it stood.
func (m *Manager) TransitionPortal(ctx context.Context, wallet, portalName string) error {
	s := m.Session(wallet)
	if s == nil {
		return ErrNoSession
	}
	src := m.Zone(s.ZoneID)
	if src == nil {
		return fmt.Errorf("zone %s gone", s.ZoneID)
	}

	var (
		e    *world.Entity
		dest world.PortalState
	)
	err := src.ExecFunc(ctx, func(z *zone.Runtime) error {
		var derr error
		e, dest, derr = z.DepartThroughPortal(wallet, s.EntityID, portalName)
		return derr
	})
	if err != nil {
		return err
	}

	dst := m.Zone(dest.DestZone)
	if dst == nil {
		m.reinsert(src, e, e.X, e.Y)
		return fmt.Errorf("destination zone %s gone", dest.DestZone)
	}
	err = dst.ExecFunc(ctx, func(z *zone.Runtime) error {
		x, y := z.ArrivalPoint(dest.DestPortal)
		return z.InsertPlayer(e, x, y)
	})
	if err != nil {
		// Compensate: the player must exist somewhere.
		m.reinsert(src, e, e.X, e.Y)
		return err
	}

	m.setSessionZone(wallet, dst.ID())
	m.log.Info("portal transition",
		zap.String("wallet", wallet),
		zap.String("from", src.ID()),
		zap.String("to", dst.ID()))
	return nil
}

// reinsert puts an already-removed entity back into a zone, retrying at
// the spawn point when its old tile is refused. Losing a live entity is
// never acceptable.
func (m *Manager) reinsert(rt *zone.Runtime, e *world.Entity, x, y int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := rt.ExecFunc(ctx, func(z *zone.Runtime) error {
		if ierr := z.InsertPlayer(e, x, y); ierr != nil {
			sx, sy := z.SpawnPoint()
			return z.InsertPlayer(e, sx, sy)
		}
		return nil
	})
	if err != nil {
		m.log.Error("reinsert failed, entity orphaned",
			zap.String("zone", rt.ID()),
			zap.String("player", e.Name),
			zap.Error(err))
	}
}
