package zone

import "github.com/shardworld/server/internal/world"

// tickRespawns restores depleted nodes, dead mobs and dead players
// whose timers have elapsed.
func (r *Runtime) tickRespawns() {
	for _, e := range r.entities {
		switch {
		case e.Node != nil:
			n := e.Node
			if n.Depleted() && n.DepletedAtTick >= 0 && r.tick >= n.DepletedAtTick+n.RespawnTicks {
				n.Charges = n.MaxCharges
				n.DepletedAtTick = -1
				r.event("node-respawn", e.ID, 0, n.Resource)
			}

		case e.Mob != nil:
			m := e.Mob
			if m.Alive || r.instance || m.RespawnAtTick == 0 || r.tick < m.RespawnAtTick {
				continue
			}
			m.HP = m.MaxHP
			m.Alive = true
			m.AggroTarget = 0
			m.AttackReadyAt = 0
			m.RespawnAtTick = 0
			e.X, e.Y = m.SpawnX, m.SpawnY
			r.grid.Move(e.ID, e.X, e.Y)
			r.event("mob-respawn", e.ID, 0, e.Name)

		case e.Player != nil:
			p := e.Player
			if p.Alive || p.RespawnAtTick == 0 || r.tick < p.RespawnAtTick {
				continue
			}
			r.respawnPlayer(e)
		}
	}
}

// respawnPlayer restores a dead player to full vitals. Players whose
// home is another zone are handed to the relocator; everyone else comes
// back at their home point or the zone spawn.
func (r *Runtime) respawnPlayer(e *world.Entity) {
	p := e.Player
	p.Alive = true
	p.RespawnAtTick = 0
	p.RecomputeEffective(r.deps.Catalog.Items)
	p.HP = p.MaxHP
	p.Essence = p.MaxEssence

	if p.HomeZone != "" && p.HomeZone != r.id && r.deps.Reloc != nil {
		r.removeEntity(e.ID)
		r.event("respawn-home", e.ID, 0, p.HomeZone)
		r.deps.Reloc.RespawnHome(e, r.id)
		return
	}

	x, y := r.spawnX, r.spawnY
	if p.HomeZone == r.id {
		x, y = p.HomeX, p.HomeY
	}
	e.X, e.Y = r.nearestWalkable(x, y)
	r.grid.Move(e.ID, e.X, e.Y)
	r.event("respawn", e.ID, 0, e.Name)
}
