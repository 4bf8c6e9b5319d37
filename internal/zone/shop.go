package zone

import (
	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/world"
)

// HandleBuy purchases stock from a merchant: currency is burned, the
// items are minted. A failed item mint refunds the currency.
func (r *Runtime) HandleBuy(wallet string, id, npcID world.EntityID, itemID string, qty int) error {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return zerr
	}
	if qty <= 0 {
		return errValidation("bad_qty", "%d", qty)
	}
	npc, zerr := r.npcNear(e, npcID, r.deps.Game.NpcProximity, world.TypeMerchant)
	if zerr != nil {
		return zerr
	}
	if !npc.Merchant.InStock(itemID) {
		return errPrecondition("not_in_stock", "%s does not sell %s", npc.Name, itemID)
	}
	tpl := r.deps.Catalog.Items.Get(itemID)
	if tpl == nil || tpl.BuyPrice <= 0 {
		return errValidation("not_for_sale", "%s", itemID)
	}
	total := tpl.BuyPrice * int64(qty)

	ctx, cancel := r.ledgerCtx()
	_, err := r.deps.Ledger.BurnItem(ctx, wallet, ledger.CurrencyToken, total)
	cancel()
	if err != nil {
		return errLedger("burn", err)
	}

	ctx, cancel = r.ledgerCtx()
	_, err = r.deps.Ledger.MintItem(ctx, wallet, itemID, int64(qty))
	cancel()
	if err != nil {
		r.refund(wallet, []data.ItemQty{{ItemID: ledger.CurrencyToken, Qty: int(total)}}, "buy mint failed")
		return errLedger("mint", err)
	}
	r.event("buy", e.ID, npcID, itemID)
	return nil
}

// HandleSell sells items to a merchant: the items are burned, currency
// is minted at the catalog sell price. A failed currency mint re-mints
// the items.
func (r *Runtime) HandleSell(wallet string, id, npcID world.EntityID, itemID string, qty int) error {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return zerr
	}
	if qty <= 0 {
		return errValidation("bad_qty", "%d", qty)
	}
	if _, zerr := r.npcNear(e, npcID, r.deps.Game.NpcProximity, world.TypeMerchant); zerr != nil {
		return zerr
	}
	tpl := r.deps.Catalog.Items.Get(itemID)
	if tpl == nil || tpl.SellPrice <= 0 {
		return errValidation("not_sellable", "%s", itemID)
	}
	total := tpl.SellPrice * int64(qty)

	ctx, cancel := r.ledgerCtx()
	_, err := r.deps.Ledger.BurnItem(ctx, wallet, itemID, int64(qty))
	cancel()
	if err != nil {
		return errLedger("burn", err)
	}

	ctx, cancel = r.ledgerCtx()
	_, err = r.deps.Ledger.MintCurrency(ctx, wallet, total)
	cancel()
	if err != nil {
		r.refund(wallet, []data.ItemQty{{ItemID: itemID, Qty: qty}}, "sell mint failed")
		return errLedger("mint", err)
	}
	r.event("sell", e.ID, npcID, itemID)
	return nil
}
