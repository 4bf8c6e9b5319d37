package zone

import (
	"go.uber.org/zap"

	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/world"
)

// HandleCraft executes a recipe at a nearby station: the inputs are
// burned, the output is minted. A mid-burn failure re-mints the inputs
// already taken; an output mint failure after the burns leaves the
// inputs spent and is logged as a ledger inconsistency. Upgrade recipes
// carry the equipment slot assignment over to the new item.
func (r *Runtime) HandleCraft(wallet string, id world.EntityID, recipeID string) error {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return zerr
	}
	recipe := r.deps.Catalog.Recipes.Get(recipeID)
	if recipe == nil {
		return errValidation("no_such_recipe", "%s", recipeID)
	}
	p := e.Player
	if recipe.Profession != "" && !p.HasProfession(recipe.Profession) {
		return errPrecondition("missing_profession", "%s required", recipe.Profession)
	}
	if p.Level < recipe.MinLevel {
		return errPrecondition("level_too_low", "%s requires level %d", recipeID, recipe.MinLevel)
	}
	if zerr := r.requireStation(e, world.EntityType(recipe.Station), r.deps.Game.StationProximity); zerr != nil {
		return zerr
	}

	if err := r.burnAll(wallet, recipe.Inputs); err != nil {
		return err
	}

	ctx, cancel := r.ledgerCtx()
	_, err := r.deps.Ledger.MintItem(ctx, wallet, recipe.Output.ItemID, int64(recipe.Output.Qty))
	cancel()
	if err != nil {
		r.log.Error("craft output mint failed after inputs burned, ledger inconsistent",
			zap.String("wallet", wallet),
			zap.String("recipe", recipeID),
			zap.String("item", recipe.Output.ItemID),
			zap.Error(err))
		r.event("craft-failed", e.ID, 0, recipeID)
		return errLedger("mint", err)
	}

	if recipe.IsUpgrade() {
		r.carryUpgradeSlot(p, recipe)
	}
	r.event("craft", e.ID, 0, recipeID)
	return nil
}

// carryUpgradeSlot moves the slot assignment from the consumed item to
// its upgraded replacement. Durability resets to the new item's max;
// enchantments stay.
func (r *Runtime) carryUpgradeSlot(p *world.PlayerState, recipe *data.Recipe) {
	out := r.deps.Catalog.Items.Get(recipe.Output.ItemID)
	for slot, eq := range p.Equipment {
		if eq == nil || eq.TokenID != recipe.UpgradeOf {
			continue
		}
		eq.TokenID = recipe.Output.ItemID
		eq.Broken = false
		if out != nil {
			eq.Durability = out.MaxDurability
			eq.MaxDurability = out.MaxDurability
		}
		p.Equipment[slot] = eq
		p.RecomputeEffective(r.deps.Catalog.Items)
		return
	}
}

// HandleEnchant burns a catalyst and applies its enchantment to the
// equipped item in the given slot. Requires a nearby enchanting altar.
func (r *Runtime) HandleEnchant(wallet string, id world.EntityID, catalystID string, slot data.Slot) error {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return zerr
	}
	p := e.Player
	if !p.HasProfession(data.ProfessionEnchanting) {
		return errPrecondition("missing_profession", "%s required", data.ProfessionEnchanting)
	}
	catalyst := r.deps.Catalog.Items.Get(catalystID)
	if catalyst == nil || catalyst.Category != data.CategoryCatalyst || catalyst.Enchant == nil {
		return errValidation("not_a_catalyst", "%s", catalystID)
	}
	if !data.ValidSlot(slot) {
		return errValidation("bad_slot", "%s", slot)
	}
	eq := p.Equipment[slot]
	if eq == nil {
		return errPrecondition("slot_empty", "%s", slot)
	}
	if eq.Broken {
		return errPrecondition("item_broken", "%s", eq.TokenID)
	}
	if zerr := r.requireStation(e, world.TypeEnchantingAltar, r.deps.Game.AltarProximity); zerr != nil {
		return zerr
	}

	ctx, cancel := r.ledgerCtx()
	_, err := r.deps.Ledger.BurnItem(ctx, wallet, catalystID, 1)
	cancel()
	if err != nil {
		return errLedger("burn", err)
	}

	spec := catalyst.Enchant
	eq.Enchantments = append(eq.Enchantments, world.Enchantment{
		ID:    spec.ID,
		Stat:  spec.Stat,
		Bonus: spec.Bonus,
	})
	p.RecomputeEffective(r.deps.Catalog.Items)
	r.event("enchant", e.ID, 0, spec.ID)
	return nil
}

// requireStation checks a station of the wanted type is within range of
// the player.
func (r *Runtime) requireStation(e *world.Entity, typ world.EntityType, rng int) *Error {
	r.gridBuf = r.grid.WithinInto(e.X, e.Y, rng, r.gridBuf[:0])
	for _, id := range r.gridBuf {
		if st := r.entities[id]; st != nil && st.Type == typ {
			return nil
		}
	}
	return errPrecondition("no_station", "%s within %d tiles", typ, rng)
}

// burnAll burns a recipe's inputs in order. On failure the already
// burned inputs are re-minted before the error is returned.
func (r *Runtime) burnAll(wallet string, inputs []data.ItemQty) error {
	for i, in := range inputs {
		ctx, cancel := r.ledgerCtx()
		_, err := r.deps.Ledger.BurnItem(ctx, wallet, in.ItemID, int64(in.Qty))
		cancel()
		if err != nil {
			r.refund(wallet, inputs[:i], "craft input burn failed")
			return errLedger("burn", err)
		}
	}
	return nil
}

// refund best-effort re-mints burned inputs after a failed craft. A
// refund that itself fails leaves the ledger short; that is logged as
// an inconsistency for offline reconciliation.
func (r *Runtime) refund(wallet string, items []data.ItemQty, reason string) {
	for _, it := range items {
		ctx, cancel := r.ledgerCtx()
		_, err := r.deps.Ledger.MintItem(ctx, wallet, it.ItemID, int64(it.Qty))
		cancel()
		if err != nil {
			r.log.Error("refund mint failed, ledger inconsistent",
				zap.String("wallet", wallet),
				zap.String("item", it.ItemID),
				zap.Int("qty", it.Qty),
				zap.String("reason", reason),
				zap.Error(err))
		}
	}
}
