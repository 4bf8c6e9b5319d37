package zone

import (
	"go.uber.org/zap"

	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/world"
)

// NewGateInstance builds a zone actor for one dungeon run. The
// population is drawn from the rank's mob and boss pools with the
// rank's HP/XP scaling (doubled again for danger gates); instance mobs
// never respawn, so the run is cleared when the count hits zero.
func NewGateInstance(instanceID string, rank *data.GateRank, danger bool, seed int64, deps Deps) *Runtime {
	r := newBareRuntime(instanceID, "gate-"+rank.Rank, rank.MinLevel, rank.Width, rank.Height, seed, deps)
	r.instance = true
	r.spawnX, r.spawnY = rank.SpawnX, rank.SpawnY

	hpScale, xpScale := rank.HPScale, rank.XPScale
	if hpScale <= 0 {
		hpScale = 1
	}
	if xpScale <= 0 {
		xpScale = 1
	}
	if danger {
		if rank.DangerHPMult > 0 {
			hpScale *= rank.DangerHPMult
		}
		if rank.DangerXPMult > 0 {
			xpScale *= rank.DangerXPMult
		}
	}

	count := rank.MobsMin
	if rank.MobsMax > rank.MobsMin {
		count += r.rng.Intn(rank.MobsMax - rank.MobsMin + 1)
	}
	r.spawnFromPool(rank.MobPool, count, rank.MobLevel, hpScale, xpScale)
	r.spawnFromPool(rank.BossPool, rank.BossCount, rank.MobLevel, hpScale, xpScale)

	r.log.Info("gate instance populated",
		zap.String("rank", rank.Rank),
		zap.Bool("danger", danger),
		zap.Int("mobs", len(r.entities)))
	return r
}

func (r *Runtime) spawnFromPool(pool []string, count, level int, hpScale, xpScale float64) {
	if len(pool) == 0 || count <= 0 {
		return
	}
	w, h := r.terrain.Width, r.terrain.Height
	for i := 0; i < count; i++ {
		tpl := r.deps.Catalog.Mobs.Get(pool[r.rng.Intn(len(pool))])
		if tpl == nil {
			continue
		}
		x, y := r.nearestWalkable(1+r.rng.Intn(w-2), 1+r.rng.Intn(h-2))
		r.addEntity(newMobEntity(tpl, x, y, level, hpScale, xpScale, 0))
	}
}

// Cleared reports whether every mob and boss in the instance is dead.
// Call from inside the actor.
func (r *Runtime) Cleared() bool {
	for _, e := range r.entities {
		if e.Mob != nil && e.Mob.Alive {
			return false
		}
	}
	return true
}

// PlayerIDs returns the ids of all player entities currently inside.
// Call from inside the actor.
func (r *Runtime) PlayerIDs() []world.EntityID {
	var out []world.EntityID
	for id, e := range r.entities {
		if e.Player != nil {
			out = append(out, id)
		}
	}
	return out
}
