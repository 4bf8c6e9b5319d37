package zone

import "github.com/shardworld/server/internal/world"

// tickEffects is the timer phase: expired effects are dropped, damage
// over time lands, regen heals. A dot can kill; deaths it causes carry
// no killer and therefore no XP or loot.
func (r *Runtime) tickEffects() {
	for _, e := range r.entities {
		list := e.EffectList()
		if list == nil || len(*list) == 0 {
			continue
		}
		v := e.Vitals()
		if v == nil || !v.Alive {
			continue
		}

		changed := false
		kept := (*list)[:0]
		for _, fx := range *list {
			if r.tick >= fx.ExpiresAtTick {
				changed = true
				continue
			}
			kept = append(kept, fx)
			switch fx.Kind {
			case "dot":
				r.applyDamage(nil, e, fx.PerTick)
				if !v.Alive {
					break
				}
			case "regen":
				v.HP += fx.PerTick
				if v.HP > v.MaxHP {
					v.HP = v.MaxHP
				}
			}
		}
		if !v.Alive {
			// Death during the loop already cleared the list.
			continue
		}
		*list = kept
		if changed && e.Player != nil {
			e.Player.RecomputeEffective(r.deps.Catalog.Items)
		}
	}
}

// dispelAll removes every effect from an entity (death, zone exit).
func dispelAll(e *world.Entity) {
	if list := e.EffectList(); list != nil {
		*list = nil
	}
}
