package zone

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/world"
)

func minerWithPickaxe(r *Runtime, durability int) *world.Entity {
	p := addTestPlayer(r, walletA, 5)
	p.Player.Professions = []string{data.ProfessionMining}
	p.Player.Equipment[data.SlotWeapon] = &world.EquippedItem{
		TokenID: "stone_pickaxe", Durability: durability, MaxDurability: 64,
	}
	return p
}

func TestGatherMintsAndConsumesCharge(t *testing.T) {
	lg := ledger.NewMemory()
	r := testRuntime(t, lg)
	p := minerWithPickaxe(r, 64)
	node := addNodeAt(r, "ore-node", "coal", 1, 2, p.X+1, p.Y)

	ch := make(chan error, 1)
	r.HandleGather(walletA, p.ID, node.ID, func(err error) { ch <- err })
	require.NoError(t, stepUntilDone(t, r, ch))

	assert.Equal(t, int64(1), balance(t, lg, walletA, "coal"))
	assert.Equal(t, 1, node.Node.Charges)
	assert.Equal(t, 63, p.Player.Equipment[data.SlotWeapon].Durability)
}

func TestGatherLastChargeDepletesSameTick(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := minerWithPickaxe(r, 64)
	node := addNodeAt(r, "ore-node", "coal", 1, 1, p.X+1, p.Y)

	first := make(chan error, 1)
	r.HandleGather(walletA, p.ID, node.ID, func(err error) { first <- err })

	// The charge is reserved before the mint resolves, so a second
	// gather on the same tick already sees the depleted node.
	second := make(chan error, 1)
	r.HandleGather(walletA, p.ID, node.ID, func(err error) { second <- err })
	err := <-second
	assert.Equal(t, "node_depleted", CodeOf(err))

	require.NoError(t, stepUntilDone(t, r, first))
	assert.True(t, node.Node.Depleted())
}

func TestGatherMintFailureRollsBackReservation(t *testing.T) {
	lg := ledger.NewMemory()
	lg.Fault = func(op, wallet, tokenID string) error {
		if op == "mint" && tokenID == "coal" {
			return &ledger.Error{Kind: ledger.Transient, Op: op, Err: errors.New("adapter down")}
		}
		return nil
	}
	r := testRuntime(t, lg)
	p := minerWithPickaxe(r, 64)
	node := addNodeAt(r, "ore-node", "coal", 1, 1, p.X+1, p.Y)

	ch := make(chan error, 1)
	r.HandleGather(walletA, p.ID, node.ID, func(err error) { ch <- err })
	err := stepUntilDone(t, r, ch)

	require.Error(t, err)
	assert.Equal(t, KindLedgerTransient, KindOf(err))
	assert.Equal(t, 1, node.Node.Charges, "charge refunded")
	assert.False(t, node.Node.Depleted())
	assert.Equal(t, 64, p.Player.Equipment[data.SlotWeapon].Durability, "durability refunded")
	assert.Equal(t, int64(0), balance(t, lg, walletA, "coal"))
}

func TestGatherLastDurabilityBreaksToolButSucceeds(t *testing.T) {
	lg := ledger.NewMemory()
	r := testRuntime(t, lg)
	p := minerWithPickaxe(r, 1)
	node := addNodeAt(r, "ore-node", "coal", 1, 3, p.X+1, p.Y)

	ch := make(chan error, 1)
	r.HandleGather(walletA, p.ID, node.ID, func(err error) { ch <- err })
	require.NoError(t, stepUntilDone(t, r, ch))

	tool := p.Player.Equipment[data.SlotWeapon]
	assert.True(t, tool.Broken)
	assert.Equal(t, int64(1), balance(t, lg, walletA, "coal"))

	// The broken tool blocks the next gather with its own code,
	// distinct from having no tool equipped.
	ch2 := make(chan error, 1)
	r.HandleGather(walletA, p.ID, node.ID, func(err error) { ch2 <- err })
	assert.Equal(t, "tool_broken", CodeOf(<-ch2))
}

func TestGatherToolMustSitInWeaponSlot(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 5)
	p.Player.Professions = []string{data.ProfessionMining}
	p.Player.Equipment[data.SlotBelt] = &world.EquippedItem{
		TokenID: "stone_pickaxe", Durability: 64, MaxDurability: 64,
	}
	node := addNodeAt(r, "ore-node", "coal", 1, 3, p.X+1, p.Y)

	// A pickaxe stashed on the belt does not count; only the weapon
	// slot is consulted.
	ch := make(chan error, 1)
	r.HandleGather(walletA, p.ID, node.ID, func(err error) { ch <- err })
	assert.Equal(t, "no_tool", CodeOf(<-ch))

	// Holding a weapon that is not a tool fails the same way.
	p.Player.Equipment[data.SlotWeapon] = &world.EquippedItem{
		TokenID: "rusty_sword", Durability: 20, MaxDurability: 20,
	}
	ch2 := make(chan error, 1)
	r.HandleGather(walletA, p.ID, node.ID, func(err error) { ch2 <- err })
	assert.Equal(t, "no_tool", CodeOf(<-ch2))
}

func TestGatherRequiresProfessionAndTier(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 5)
	p.Player.Equipment[data.SlotWeapon] = &world.EquippedItem{
		TokenID: "stone_pickaxe", Durability: 64, MaxDurability: 64,
	}
	node := addNodeAt(r, "ore-node", "coal", 1, 3, p.X+1, p.Y)

	ch := make(chan error, 1)
	r.HandleGather(walletA, p.ID, node.ID, func(err error) { ch <- err })
	assert.Equal(t, "missing_profession", CodeOf(<-ch))

	p.Player.Professions = []string{data.ProfessionMining}
	deepNode := addNodeAt(r, "ore-node", "iron_ore", 3, 3, p.X+1, p.Y)
	ch2 := make(chan error, 1)
	r.HandleGather(walletA, p.ID, deepNode.ID, func(err error) { ch2 <- err })
	assert.Equal(t, "tool_tier_too_low", CodeOf(<-ch2))
}

func TestNodeRespawnsAfterTimer(t *testing.T) {
	lg := ledger.NewMemory()
	r := testRuntime(t, lg)
	p := minerWithPickaxe(r, 64)
	node := addNodeAt(r, "ore-node", "coal", 1, 1, p.X+1, p.Y)

	ch := make(chan error, 1)
	r.HandleGather(walletA, p.ID, node.ID, func(err error) { ch <- err })
	require.NoError(t, stepUntilDone(t, r, ch))
	require.True(t, node.Node.Depleted())

	for i := int64(0); i <= node.Node.RespawnTicks+1; i++ {
		r.StepTick()
	}
	assert.Equal(t, node.Node.MaxCharges, node.Node.Charges)
	assert.False(t, node.Node.Depleted())
}

func TestGatherFlowerNeedsHerbalism(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := minerWithPickaxe(r, 64) // mining only
	flower := addNodeAt(r, "flower-node", "healing_herb", 1, 3, p.X+1, p.Y)

	ch := make(chan error, 1)
	r.HandleGather(walletA, p.ID, flower.ID, func(err error) { ch <- err })
	assert.Equal(t, "missing_profession", CodeOf(<-ch))
}
