package zone

import (
	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/world"
)

// DepartThroughPortal validates a portal transition and removes the
// player from the zone. portalName selects a specific portal; empty
// means the nearest one. The caller owns the returned entity and must
// either insert it into the destination zone or put it back.
func (r *Runtime) DepartThroughPortal(wallet string, id world.EntityID, portalName string) (*world.Entity, world.PortalState, error) {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return nil, world.PortalState{}, zerr
	}
	portal := r.findPortal(e, portalName)
	if portal == nil {
		if portalName != "" {
			return nil, world.PortalState{}, errValidation("unknown_portal", "%s in %s", portalName, r.id)
		}
		return nil, world.PortalState{}, errPrecondition("no_portal", "no portal near (%d,%d)", e.X, e.Y)
	}
	if !world.WithinRange(e, portal, r.deps.Game.PortalProximity) {
		return nil, world.PortalState{}, errPrecondition("out_of_range", "portal %s at (%d,%d)", portal.Name, portal.X, portal.Y)
	}
	removed, err := r.RemovePlayer(id)
	if err != nil {
		return nil, world.PortalState{}, err
	}
	r.event("depart", id, portal.ID, portal.Portal.DestZone)
	return removed, *portal.Portal, nil
}

func (r *Runtime) findPortal(from *world.Entity, name string) *world.Entity {
	var best *world.Entity
	bestDist := 0
	for _, e := range r.entities {
		if e.Type != world.TypePortalMarker {
			continue
		}
		if name != "" {
			if e.Name == name {
				return e
			}
			continue
		}
		d := world.Chebyshev(from.X, from.Y, e.X, e.Y)
		if best == nil || d < bestDist {
			best, bestDist = e, d
		}
	}
	return best
}

// ArrivalPoint resolves where a named portal drops arrivals. Falls back
// to the zone spawn when the portal does not exist.
func (r *Runtime) ArrivalPoint(portalName string) (int, int) {
	for _, e := range r.entities {
		if e.Type == world.TypePortalMarker && e.Name == portalName {
			return r.nearestWalkable(e.X, e.Y)
		}
	}
	return r.spawnX, r.spawnY
}

// GateDeparture is the outcome of a successful gate opening: the gate
// consumed a key and the listed players left the zone. Members[0] is the
// opener.
type GateDeparture struct {
	GateID  world.EntityID
	GateX   int
	GateY   int
	Rank    *data.GateRank
	Danger  bool
	Members []*world.Entity
}

// OpenGate validates a dungeon gate opening, burns the opener's key and
// removes the opener plus their eligible party members from the zone.
// The key burn blocks the tick loop for at most the ledger timeout.
func (r *Runtime) OpenGate(wallet string, id, gateID world.EntityID) (*GateDeparture, error) {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return nil, zerr
	}
	gate := r.findGate(e, gateID)
	if gate == nil {
		return nil, errPrecondition("no_gate", "no gate near (%d,%d)", e.X, e.Y)
	}
	if !world.WithinRange(e, gate, r.deps.Game.GateProximity) {
		return nil, errPrecondition("out_of_range", "gate %s at (%d,%d)", gate.Name, gate.X, gate.Y)
	}
	if gate.Gate.Opened {
		return nil, errConflict("gate_open", "%s already open", gate.Name)
	}
	rank := r.deps.Catalog.Gates.Get(gate.Gate.Rank)
	if rank == nil {
		return nil, errInternal("unknown_rank", "%s", gate.Gate.Rank)
	}
	if e.Player.Level < rank.MinLevel {
		return nil, errPrecondition("level_too_low", "rank %s needs level %d", rank.Rank, rank.MinLevel)
	}
	// Every party member must be here, alive, at the gate and of rank
	// level before the key is spent.
	members := r.partyMembersHere(id)
	var roster []world.EntityID
	if r.deps.Roster != nil {
		roster = r.deps.Roster.Members(id)
	}
	if len(roster) > 0 && len(members) != len(roster) {
		return nil, errPrecondition("party_not_ready", "%d of %d members in zone", len(members), len(roster))
	}
	for _, m := range members {
		if !m.Player.Alive {
			return nil, errPrecondition("party_not_ready", "%s is dead", m.Name)
		}
		if m.Player.Level < rank.MinLevel {
			return nil, errPrecondition("party_not_ready", "%s below level %d", m.Name, rank.MinLevel)
		}
		if !world.WithinRange(m, gate, r.deps.Game.GateProximity) {
			return nil, errPrecondition("party_not_ready", "%s away from the gate", m.Name)
		}
	}

	ctx, cancel := r.ledgerCtx()
	_, err := r.deps.Ledger.BurnItem(ctx, wallet, rank.KeyItemID, 1)
	cancel()
	if err != nil {
		return nil, errLedger("burn", err)
	}

	dep := &GateDeparture{
		GateID: gate.ID,
		GateX:  gate.X,
		GateY:  gate.Y,
		Rank:   rank,
		Danger: gate.Gate.Danger,
	}
	for _, m := range members {
		if m.ID == id {
			continue
		}
		if removed, rerr := r.RemovePlayer(m.ID); rerr == nil {
			dep.Members = append(dep.Members, removed)
		}
	}
	opener, err := r.RemovePlayer(id)
	if err != nil {
		// Should not happen after alivePlayer; put the party back.
		for _, m := range dep.Members {
			_ = r.InsertPlayer(m, m.X, m.Y)
		}
		return nil, err
	}
	dep.Members = append([]*world.Entity{opener}, dep.Members...)

	gate.Gate.Opened = true
	r.event("gate-open", id, gate.ID, rank.Rank)
	return dep, nil
}

// StampGateExpiry records when an opened gate's instance collapses.
func (r *Runtime) StampGateExpiry(gateID world.EntityID, unix int64) {
	if g := r.entities[gateID]; g != nil && g.Gate != nil && g.Gate.Opened {
		g.Gate.ExpiresAt = unix
	}
}

func (r *Runtime) findGate(from *world.Entity, gateID world.EntityID) *world.Entity {
	if gateID != 0 {
		g := r.entities[gateID]
		if g == nil || g.Type != world.TypeDungeonGate {
			return nil
		}
		return g
	}
	var best *world.Entity
	bestDist := 0
	for _, e := range r.entities {
		if e.Type != world.TypeDungeonGate {
			continue
		}
		d := world.Chebyshev(from.X, from.Y, e.X, e.Y)
		if best == nil || d < bestDist {
			best, bestDist = e, d
		}
	}
	return best
}

// ResetGate closes an opened gate again. Called when its instance ends
// or could not be started.
func (r *Runtime) ResetGate(gateID world.EntityID) {
	g := r.entities[gateID]
	if g == nil || g.Gate == nil {
		return
	}
	g.Gate.Opened = false
	g.Gate.ExpiresAt = 0
	r.event("gate-closed", 0, gateID, g.Gate.Rank)
}
