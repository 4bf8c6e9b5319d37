package zone

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/scripting"
	"github.com/shardworld/server/internal/world"
)

// meleeRange is the Chebyshev reach of a basic player strike.
const meleeRange = 1

// defenseCoef scales defender defense in the damage formula.
const defenseCoef = 0.5

// fistCoef is the weapon coefficient of an empty or broken weapon slot.
const fistCoef = 0.5

// HandleAttack engages a player on a mob target. When the target is in
// reach and the swing timer is ready the first strike lands on the same
// tick; afterwards the combat phase keeps swinging until the engagement
// is broken.
func (r *Runtime) HandleAttack(wallet string, id, targetID world.EntityID) error {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return zerr
	}
	t := r.entities[targetID]
	if t == nil || t.Mob == nil {
		return errValidation("no_such_target", "entity %d", targetID)
	}
	if !t.Mob.Alive {
		return errPrecondition("target_dead", "entity %d", targetID)
	}
	e.Player.AttackTarget = targetID
	if e.Player.AttackCooldown <= 0 {
		e.Player.AttackCooldown = 2
	}
	if r.tick >= e.Player.AttackReadyAt && world.WithinRange(e, t, meleeRange) {
		r.swing(e, t)
	}
	return nil
}

// tickCombat is the per-tick combat phase: every engaged player whose
// swing timer is ready strikes their target if it is still in reach.
func (r *Runtime) tickCombat() {
	for _, e := range r.entities {
		p := e.Player
		if p == nil || !p.Alive || p.AttackTarget == 0 {
			continue
		}
		t := r.entities[p.AttackTarget]
		if t == nil || t.Mob == nil || !t.Mob.Alive {
			p.AttackTarget = 0
			continue
		}
		if r.tick < p.AttackReadyAt || !world.WithinRange(e, t, meleeRange) {
			continue
		}
		r.swing(e, t)
	}
}

// swing resolves one basic attack from a player and arms the swing timer.
func (r *Runtime) swing(att, def *world.Entity) {
	att.Player.AttackReadyAt = r.tick + att.Player.AttackCooldown
	dmg := r.damage(att, def, 0)
	r.wearWeapon(att)
	r.applyDamage(att, def, dmg)
}

// combatProfile extracts the numbers the damage formula needs,
// folding active effect deltas into mob stats (player effects are
// already folded into Effective).
func combatProfile(e *world.Entity, items *data.ItemTable) (str, def, level int, weaponCoef float64) {
	switch {
	case e.Player != nil:
		p := e.Player
		str, def, level = p.Effective.Str, p.Effective.Def, p.Level
		weaponCoef = fistCoef
		if w := p.Equipment[data.SlotWeapon]; w != nil && !w.Broken {
			if tpl := items.Get(w.TokenID); tpl != nil && tpl.WeaponCoef > 0 {
				weaponCoef = tpl.WeaponCoef
			}
		}
	case e.Mob != nil:
		m := e.Mob
		str, def, level = m.Str, m.Def, m.Level
		for _, fx := range m.Effects {
			str += fx.StatDelta.Str
			def += fx.StatDelta.Def
		}
		weaponCoef = 1.0
	}
	return str, def, level, weaponCoef
}

// damage computes one hit from att to def. mult is the technique damage
// addend, zero for basic attacks. Outgoing damage is scaled by the sum
// of the attacker's effect percentages, bounded to the configured cap,
// and a landed hit always deals at least 1.
func (r *Runtime) damage(att, def *world.Entity, mult float64) int {
	aStr, _, aLvl, coef := combatProfile(att, r.deps.Catalog.Items)
	_, dDef, dLvl, _ := combatProfile(def, r.deps.Catalog.Items)

	var raw int
	if dmg, ok := r.deps.Scripts.CalcDamage(scripting.DamageContext{
		AttackerStr:   aStr,
		AttackerLevel: aLvl,
		WeaponCoef:    coef,
		TechMult:      mult,
		DefenderDef:   dDef,
		DefenderLevel: dLvl,
	}); ok {
		raw = dmg
	} else {
		raw = int(float64(aStr)*coef + mult - float64(dDef)*defenseCoef)
	}

	pct := 0
	if fx := att.EffectList(); fx != nil {
		for _, f := range *fx {
			pct += f.DamagePct
		}
	}
	if limit := r.deps.Game.EffectCapPct; limit > 0 {
		if pct > limit {
			pct = limit
		}
		if pct < -limit {
			pct = -limit
		}
	}
	raw = raw * (100 + pct) / 100
	if raw < 1 {
		raw = 1
	}
	return raw
}

// wearWeapon decrements weapon durability on use; at zero the weapon
// breaks and its bonuses stop applying until repaired or replaced.
func (r *Runtime) wearWeapon(e *world.Entity) {
	w := e.Player.Equipment[data.SlotWeapon]
	if w == nil || w.Broken || w.MaxDurability <= 0 {
		return
	}
	w.Durability--
	if w.Durability <= 0 {
		w.Broken = true
		e.Player.RecomputeEffective(r.deps.Catalog.Items)
		r.event("item-broken", e.ID, 0, w.TokenID)
	}
}

// applyDamage lands a computed hit and handles death. Mobs retaliate:
// taking damage aggros them on the attacker.
func (r *Runtime) applyDamage(att, def *world.Entity, dmg int) {
	v := def.Vitals()
	if v == nil || !v.Alive {
		return
	}
	v.HP -= dmg
	if def.Mob != nil && att != nil && att.Player != nil {
		def.Mob.AggroTarget = att.ID
	}
	if v.HP > 0 {
		return
	}
	v.HP = 0
	if def.Mob != nil {
		r.killMob(att, def)
	} else {
		r.killPlayer(def)
	}
}

// killMob finalizes a mob death: kill credit, quest progress, XP split
// and fire-and-forget loot minting.
func (r *Runtime) killMob(killer, mob *world.Entity) {
	m := mob.Mob
	m.Alive = false
	m.AggroTarget = 0
	m.Effects = nil
	if m.RespawnTicks > 0 && !r.instance {
		m.RespawnAtTick = r.tick + m.RespawnTicks
	}
	r.event("kill", killerID(killer), mob.ID, mob.Name)

	if killer == nil || killer.Player == nil {
		return
	}
	killer.Player.Kills++
	if killer.Player.AttackTarget == mob.ID {
		killer.Player.AttackTarget = 0
	}
	r.creditKillQuests(killer, mob.Name)
	r.awardKillXP(killer, m)
	r.mintLoot(killer.Player.Wallet, m.TemplateID, killer.ID)
}

func killerID(e *world.Entity) world.EntityID {
	if e == nil {
		return 0
	}
	return e.ID
}

// awardKillXP grants mob XP to the killer's in-zone party. Live members
// each receive the full share, dead members half, and every member
// beyond the first adds the configured group bonus.
func (r *Runtime) awardKillXP(killer *world.Entity, m *world.MobState) {
	xp := int64(float64(m.XP) * r.deps.Rates.XPRate)
	if xp <= 0 {
		return
	}
	members := r.partyMembersHere(killer.ID)
	bonus := 1 + r.deps.Game.PartyBonusPerMember*float64(len(members)-1)
	for _, e := range members {
		share := int64(float64(xp) * bonus)
		if !e.Player.Alive {
			share /= 2
		}
		if share > 0 {
			r.grantXP(e, share)
		}
	}
}

// grantXP adds XP and processes any level-ups. Each level-up rebuilds
// base stats for the new level and restores vitals to full. At the
// level cap XP still accumulates.
func (r *Runtime) grantXP(e *world.Entity, amount int64) {
	p := e.Player
	p.XP += amount
	maxLevel := r.deps.Catalog.Stats.MaxLevel()
	for p.Level < maxLevel && p.XP >= data.XPForLevel(p.Level+1) {
		p.Level++
		p.Base = r.deps.Catalog.Stats.BaseStats(p.RaceID, p.ClassID, p.Level)
		p.RecomputeEffective(r.deps.Catalog.Items)
		p.HP = p.MaxHP
		p.Essence = p.MaxEssence
		r.event("level-up", e.ID, 0, "")
		r.log.Info("level up",
			zap.String("player", e.Name),
			zap.Int("level", p.Level))
	}
}

// mintLoot rolls a dead mob's drop table and mints the results to the
// killer's wallet without blocking the tick loop. Mint failures are
// logged and recorded in the event log; kill loot is never compensated.
func (r *Runtime) mintLoot(wallet, templateID string, killer world.EntityID) {
	drops := r.deps.Catalog.Loot.RollAuto(templateID, r.deps.Rates.DropRate, r.rng)
	currency := r.deps.Catalog.Loot.RollCurrency(templateID, r.deps.Rates.CurrencyRate, r.rng)
	if len(drops) == 0 && currency <= 0 {
		return
	}
	lg := r.deps.Ledger
	log := r.log
	timeout := r.deps.LedgerTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		for _, d := range drops {
			if _, err := lg.MintItem(ctx, wallet, d.ItemID, int64(d.Qty)); err != nil {
				log.Warn("loot mint failed",
					zap.String("wallet", wallet),
					zap.String("item", d.ItemID),
					zap.Error(err))
				r.Post(func(rt *Runtime) {
					rt.event("loot-mint-failed", killer, 0, d.ItemID)
				})
			}
		}
		if currency > 0 {
			if _, err := lg.MintCurrency(ctx, wallet, currency); err != nil {
				log.Warn("currency mint failed",
					zap.String("wallet", wallet),
					zap.Error(err))
				r.Post(func(rt *Runtime) {
					rt.event("loot-mint-failed", killer, 0, ledger.CurrencyToken)
				})
			}
		}
	}()
}

// killPlayer finalizes a player death: effects clear, engagements drop
// and the respawn timer starts. Mobs aggroed on the victim go home.
func (r *Runtime) killPlayer(e *world.Entity) {
	p := e.Player
	p.Alive = false
	p.Effects = nil
	p.AttackTarget = 0
	p.RecomputeEffective(r.deps.Catalog.Items)
	p.RespawnAtTick = r.tick + r.deps.Game.PlayerRespawnTicks
	for _, other := range r.entities {
		if other.Mob != nil && other.Mob.AggroTarget == e.ID {
			other.Mob.AggroTarget = 0
		}
	}
	r.event("death", e.ID, 0, e.Name)
}
