package zone

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/world"
)

// HandleGather harvests one charge from a resource node. The charge and
// one point of tool durability are reserved immediately, so a second
// gather on the same tick sees the depleted node; the mint runs off the
// tick loop and a failure rolls the reservation back before the caller
// sees the error.
func (r *Runtime) HandleGather(wallet string, id, nodeID world.EntityID, done func(error)) {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		done(zerr)
		return
	}
	node := r.entities[nodeID]
	if node == nil || node.Node == nil {
		done(errValidation("no_such_node", "entity %d", nodeID))
		return
	}
	if !world.WithinRange(e, node, r.deps.Game.NodeProximity) {
		done(errPrecondition("out_of_range", "node %d beyond %d tiles", nodeID, r.deps.Game.NodeProximity))
		return
	}

	profession := data.ProfessionMining
	if node.Type == world.TypeFlowerNode {
		profession = data.ProfessionHerbalism
	}
	if !e.Player.HasProfession(profession) {
		done(errPrecondition("missing_profession", "%s required", profession))
		return
	}
	tool, zerr := r.gatherTool(e.Player, profession, node.Node.Tier)
	if zerr != nil {
		done(zerr)
		return
	}
	if node.Node.Depleted() {
		done(errPrecondition("node_depleted", "node %d", nodeID))
		return
	}

	// Reserve before the mint leaves the actor.
	n := node.Node
	n.Charges--
	if n.Charges == 0 {
		n.DepletedAtTick = r.tick
	}
	tool.Durability--
	brokeNow := false
	if tool.Durability <= 0 && !tool.Broken {
		tool.Broken = true
		brokeNow = true
		e.Player.RecomputeEffective(r.deps.Catalog.Items)
	}

	itemID := n.ItemID
	timeout := r.deps.LedgerTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	lg := r.deps.Ledger
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := lg.MintItem(ctx, wallet, itemID, 1)
		r.Post(func(rt *Runtime) {
			if err == nil {
				rt.event("gather", id, nodeID, itemID)
				if brokeNow {
					rt.event("item-broken", id, 0, tool.TokenID)
				}
				done(nil)
				return
			}
			// Roll the reservation back. The node may have respawned in
			// the window, so the charge refund is clamped.
			if n.Charges < n.MaxCharges {
				n.Charges++
			}
			if n.Charges > 0 {
				n.DepletedAtTick = -1
			}
			tool.Durability++
			if brokeNow {
				tool.Broken = false
				if pe := rt.entities[id]; pe != nil && pe.Player != nil {
					pe.Player.RecomputeEffective(rt.deps.Catalog.Items)
				}
			}
			rt.log.Warn("gather mint failed, reservation rolled back",
				zap.String("wallet", wallet),
				zap.String("item", itemID),
				zap.Error(err))
			rt.event("gather-failed", id, nodeID, itemID)
			done(errLedger("mint", err))
		})
	}()
}

// gatherTool checks the weapon slot holds a working tool of the
// profession with a tier high enough for the node. Tools occupy the
// weapon slot; a broken tool is its own failure, distinct from having
// none equipped.
func (r *Runtime) gatherTool(p *world.PlayerState, profession string, tier int) (*world.EquippedItem, *Error) {
	eq := p.Equipment[data.SlotWeapon]
	if eq == nil {
		return nil, errPrecondition("no_tool", "%s tool required", profession)
	}
	tpl := r.deps.Catalog.Items.Get(eq.TokenID)
	if tpl == nil || tpl.Category != data.CategoryTool || tpl.Profession != profession {
		return nil, errPrecondition("no_tool", "%s tool required", profession)
	}
	if eq.Broken || eq.Durability <= 0 {
		return nil, errPrecondition("tool_broken", "%s", eq.TokenID)
	}
	if tpl.Tier < tier {
		return nil, errPrecondition("tool_tier_too_low", "node tier %d, tool tier %d", tier, tpl.Tier)
	}
	return eq, nil
}
