package zone

import (
	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/world"
)

// HandleEquip puts a wallet-owned item into its equipment slot. The
// ledger stays authoritative: ownership is verified at equip time and
// the token itself never leaves the wallet. Replacing a slot simply
// drops the old server-side record.
func (r *Runtime) HandleEquip(wallet string, id world.EntityID, itemID string) error {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return zerr
	}
	tpl := r.deps.Catalog.Items.Get(itemID)
	if tpl == nil {
		return errValidation("no_such_item", "%s", itemID)
	}
	if !data.ValidSlot(tpl.Slot) {
		return errValidation("not_equipable", "%s", itemID)
	}

	ctx, cancel := r.ledgerCtx()
	balance, err := r.deps.Ledger.GetItemBalance(ctx, wallet, itemID)
	cancel()
	if err != nil {
		return errLedger("balance", err)
	}
	if balance < 1 {
		return errPrecondition("not_owned", "%s", itemID)
	}

	p := e.Player
	if p.Equipment == nil {
		p.Equipment = make(map[data.Slot]*world.EquippedItem)
	}
	p.Equipment[tpl.Slot] = &world.EquippedItem{
		TokenID:       itemID,
		Durability:    tpl.MaxDurability,
		MaxDurability: tpl.MaxDurability,
	}
	p.RecomputeEffective(r.deps.Catalog.Items)
	r.event("equip", e.ID, 0, itemID)
	return nil
}

// HandleUnequip clears an equipment slot. Broken items can be removed.
func (r *Runtime) HandleUnequip(wallet string, id world.EntityID, slot data.Slot) error {
	e, zerr := r.player(wallet, id)
	if zerr != nil {
		return zerr
	}
	if !data.ValidSlot(slot) {
		return errValidation("bad_slot", "%s", slot)
	}
	p := e.Player
	eq := p.Equipment[slot]
	if eq == nil {
		return errPrecondition("slot_empty", "%s", slot)
	}
	delete(p.Equipment, slot)
	p.RecomputeEffective(r.deps.Catalog.Items)
	r.event("unequip", e.ID, 0, eq.TokenID)
	return nil
}

// HandleLearn learns a technique or profession from a nearby trainer.
func (r *Runtime) HandleLearn(wallet string, id, npcID world.EntityID, what string) error {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return zerr
	}
	npc, zerr := r.npcNear(e, npcID, r.deps.Game.NpcProximity,
		world.TypeTrainer, world.TypeProfessionTrainer)
	if zerr != nil {
		return zerr
	}
	if !npc.Trainer.CanTeach(what) {
		return errPrecondition("not_taught", "%s does not teach %s", npc.Name, what)
	}
	p := e.Player

	if tech := r.deps.Catalog.Techniques.Get(what); tech != nil {
		if p.HasLearned(what) {
			return errConflict("already_learned", "%s", what)
		}
		if tech.ClassID != "" && tech.ClassID != p.ClassID {
			return errPrecondition("wrong_class", "%s is %s only", what, tech.ClassID)
		}
		if p.Level < tech.MinLevel {
			return errPrecondition("level_too_low", "%s requires level %d", what, tech.MinLevel)
		}
		p.Learned = append(p.Learned, what)
		r.event("learn", e.ID, npcID, what)
		return nil
	}

	switch what {
	case data.ProfessionMining, data.ProfessionHerbalism, data.ProfessionSmithing,
		data.ProfessionAlchemy, data.ProfessionEnchanting:
		if p.HasProfession(what) {
			return errConflict("already_learned", "%s", what)
		}
		p.Professions = append(p.Professions, what)
		r.event("learn", e.ID, npcID, what)
		return nil
	}
	return errValidation("unknown_teaching", "%s", what)
}
