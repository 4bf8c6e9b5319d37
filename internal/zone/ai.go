package zone

import "github.com/shardworld/server/internal/world"

// leashFactor times detect radius is how far a mob chases before
// giving up and walking home.
const leashFactor = 2

// tickMobAI drives idle, aggro and return behavior for every living mob.
func (r *Runtime) tickMobAI() {
	for _, e := range r.entities {
		m := e.Mob
		if m == nil || !m.Alive {
			continue
		}
		if m.AggroTarget != 0 {
			r.chase(e)
			continue
		}
		if m.Aggressive {
			if target := r.nearestAlivePlayer(e, m.DetectRadius); target != 0 {
				m.AggroTarget = target
				continue
			}
		}
		if e.X != m.SpawnX || e.Y != m.SpawnY {
			r.stepToward(e, m.SpawnX, m.SpawnY)
		}
	}
}

// chase advances an aggroed mob: strike when in reach and off cooldown,
// otherwise close the gap, and leash home when the target gets away.
func (r *Runtime) chase(e *world.Entity) {
	m := e.Mob
	t := r.entities[m.AggroTarget]
	if t == nil || t.Player == nil || !t.Player.Alive {
		m.AggroTarget = 0
		return
	}
	if world.Chebyshev(e.X, e.Y, t.X, t.Y) > m.DetectRadius*leashFactor {
		m.AggroTarget = 0
		return
	}
	if world.WithinRange(e, t, m.StrikeRadius) {
		if r.tick >= m.AttackReadyAt {
			m.AttackReadyAt = r.tick + m.AttackCooldown
			r.applyDamage(e, t, r.damage(e, t, 0))
		}
		return
	}
	r.stepToward(e, t.X, t.Y)
}

// nearestAlivePlayer scans the spatial index for the closest living
// player within radius, or 0.
func (r *Runtime) nearestAlivePlayer(e *world.Entity, radius int) world.EntityID {
	r.gridBuf = r.grid.WithinInto(e.X, e.Y, radius, r.gridBuf[:0])
	best := world.EntityID(0)
	bestDist := radius + 1
	for _, id := range r.gridBuf {
		p := r.entities[id]
		if p == nil || p.Player == nil || !p.Player.Alive {
			continue
		}
		if d := world.Chebyshev(e.X, e.Y, p.X, p.Y); d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}
