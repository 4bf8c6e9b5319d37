package zone

import (
	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/world"
)

// HandleCast resolves a technique cast. Costs are checked before any
// state changes; a cast with essence exactly equal to the cost succeeds
// and leaves the caster at zero.
func (r *Runtime) HandleCast(wallet string, id world.EntityID, techID string, targetID world.EntityID) error {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return zerr
	}
	p := e.Player
	tech := r.deps.Catalog.Techniques.Get(techID)
	if tech == nil {
		return errValidation("no_such_technique", "%s", techID)
	}
	if !p.HasLearned(techID) {
		return errPrecondition("not_learned", "%s", techID)
	}
	if p.Essence < tech.EssenceCost {
		return errPrecondition("insufficient_essence", "%s needs %d, have %d", techID, tech.EssenceCost, p.Essence)
	}
	if readyAt, ok := p.Cooldowns[techID]; ok && r.tick < readyAt {
		return errConflict("on_cooldown", "%s ready at tick %d", techID, readyAt)
	}

	targets, zerr := r.resolveTargets(e, tech, targetID)
	if zerr != nil {
		return zerr
	}

	p.Essence -= tech.EssenceCost
	if tech.CooldownTicks > 0 {
		if p.Cooldowns == nil {
			p.Cooldowns = make(map[string]int64)
		}
		p.Cooldowns[techID] = r.tick + tech.CooldownTicks
	}

	for _, t := range targets {
		if tech.Damaging {
			r.applyDamage(e, t, r.damage(e, t, tech.Multiplier))
		}
		if tech.Effect != nil {
			v := t.Vitals()
			if v != nil && v.Alive {
				r.applyEffect(t, tech)
			}
		}
	}
	r.event("cast", e.ID, targetID, techID)
	return nil
}

// resolveTargets expands a technique's targeting mode into concrete
// entities. Hostile techniques (damaging, or carrying a dot/debuff
// effect) land on mobs; friendly ones land on the caster and, for AoE,
// in-zone party members inside the radius.
func (r *Runtime) resolveTargets(caster *world.Entity, tech *data.Technique, targetID world.EntityID) ([]*world.Entity, *Error) {
	hostile := tech.Damaging || hostileEffect(tech.Effect)
	switch tech.Target {
	case data.TargetSelf:
		return []*world.Entity{caster}, nil

	case data.TargetSingle:
		t := r.entities[targetID]
		if t == nil {
			return nil, errValidation("no_such_target", "entity %d", targetID)
		}
		if hostile {
			if t.Mob == nil || !t.Mob.Alive {
				return nil, errPrecondition("invalid_target", "entity %d", targetID)
			}
		} else if t.Player == nil || !t.Player.Alive {
			return nil, errPrecondition("invalid_target", "entity %d", targetID)
		}
		if !world.WithinRange(caster, t, tech.Range) {
			return nil, errPrecondition("out_of_range", "entity %d beyond %d tiles", targetID, tech.Range)
		}
		return []*world.Entity{t}, nil

	case data.TargetAoE:
		var out []*world.Entity
		if hostile {
			r.gridBuf = r.grid.WithinInto(caster.X, caster.Y, tech.Radius, r.gridBuf[:0])
			for _, eid := range r.gridBuf {
				t := r.entities[eid]
				if t != nil && t.Mob != nil && t.Mob.Alive {
					out = append(out, t)
				}
			}
		} else {
			for _, m := range r.partyMembersHere(caster.ID) {
				if m.Player.Alive && world.WithinRange(caster, m, tech.Radius) {
					out = append(out, m)
				}
			}
		}
		if len(out) == 0 {
			return nil, errPrecondition("no_targets", "radius %d", tech.Radius)
		}
		return out, nil
	}
	return nil, errValidation("bad_target_kind", "%s", tech.Target)
}

// hostileEffect reports whether an effect harms its target, which makes
// mobs the valid targets even when the cast itself deals no hit damage.
func hostileEffect(spec *data.EffectSpec) bool {
	return spec != nil && (spec.Kind == "dot" || spec.Kind == "debuff")
}

// applyEffect attaches a technique's timed effect, replacing any prior
// application from the same technique rather than stacking it.
func (r *Runtime) applyEffect(t *world.Entity, tech *data.Technique) {
	list := t.EffectList()
	if list == nil {
		return
	}
	spec := tech.Effect
	fx := &world.Effect{
		Source:        tech.ID,
		Kind:          spec.Kind,
		DamagePct:     spec.DamagePct,
		StatDelta:     spec.StatDelta,
		PerTick:       spec.PerTick,
		ExpiresAtTick: r.tick + spec.DurationTicks,
	}
	kept := (*list)[:0]
	for _, old := range *list {
		if old.Source != tech.ID {
			kept = append(kept, old)
		}
	}
	*list = append(kept, fx)
	if t.Player != nil {
		t.Player.RecomputeEffective(r.deps.Catalog.Items)
	}
}
