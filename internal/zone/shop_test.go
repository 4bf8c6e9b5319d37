package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/world"
)

func merchantZone(t *testing.T, lg *ledger.Memory) (*Runtime, *world.Entity, *world.Entity) {
	r := testRuntime(t, lg)
	p := addTestPlayer(r, walletA, 1)
	m := addNpcAt(r, "Trader Vess", "merchant", p.X+2, p.Y,
		[]string{"health_potion", "stone_pickaxe", "rusty_sword"}, nil)
	return r, p, m
}

func TestBuyAndSellRoundTrip(t *testing.T) {
	lg := ledger.NewMemory()
	r, p, m := merchantZone(t, lg)
	mint(t, lg, walletA, ledger.CurrencyToken, 100)

	require.NoError(t, r.HandleBuy(walletA, p.ID, m.ID, "health_potion", 2))
	assert.Equal(t, int64(80), balance(t, lg, walletA, ledger.CurrencyToken))
	assert.Equal(t, int64(2), balance(t, lg, walletA, "health_potion"))

	require.NoError(t, r.HandleSell(walletA, p.ID, m.ID, "health_potion", 1))
	assert.Equal(t, int64(82), balance(t, lg, walletA, ledger.CurrencyToken))
	assert.Equal(t, int64(1), balance(t, lg, walletA, "health_potion"))
}

func TestBuyInsufficientCurrency(t *testing.T) {
	lg := ledger.NewMemory()
	r, p, m := merchantZone(t, lg)
	mint(t, lg, walletA, ledger.CurrencyToken, 5)

	err := r.HandleBuy(walletA, p.ID, m.ID, "health_potion", 1)
	require.Error(t, err)
	assert.Equal(t, KindLedgerPermanent, KindOf(err))
	assert.Equal(t, int64(5), balance(t, lg, walletA, ledger.CurrencyToken))
}

func TestBuyMintFailureRefundsCurrency(t *testing.T) {
	lg := ledger.NewMemory()
	lg.Fault = func(op, wallet, tokenID string) error {
		if op == "mint" && tokenID == "health_potion" {
			return &ledger.Error{Kind: ledger.Transient, Op: op, Err: assert.AnError}
		}
		return nil
	}
	r, p, m := merchantZone(t, lg)
	mint(t, lg, walletA, ledger.CurrencyToken, 100)

	err := r.HandleBuy(walletA, p.ID, m.ID, "health_potion", 1)
	require.Error(t, err)
	assert.Equal(t, int64(100), balance(t, lg, walletA, ledger.CurrencyToken), "price refunded")
	assert.Equal(t, int64(0), balance(t, lg, walletA, "health_potion"))
}

func TestBuyRequiresStock(t *testing.T) {
	lg := ledger.NewMemory()
	r, p, m := merchantZone(t, lg)
	mint(t, lg, walletA, ledger.CurrencyToken, 1000)

	err := r.HandleBuy(walletA, p.ID, m.ID, "iron_sword", 1)
	assert.Equal(t, "not_in_stock", CodeOf(err))
}

func TestEquipVerifiesOwnership(t *testing.T) {
	lg := ledger.NewMemory()
	r := testRuntime(t, lg)
	p := addTestPlayer(r, walletA, 1)

	err := r.HandleEquip(walletA, p.ID, "rusty_sword")
	assert.Equal(t, "not_owned", CodeOf(err))

	mint(t, lg, walletA, "rusty_sword", 1)
	require.NoError(t, r.HandleEquip(walletA, p.ID, "rusty_sword"))

	w := p.Player.Equipment[data.SlotWeapon]
	require.NotNil(t, w)
	assert.Equal(t, 20, w.Durability)
	assert.Equal(t, p.Player.Base.Str+2, p.Player.Effective.Str)

	require.NoError(t, r.HandleUnequip(walletA, p.ID, data.SlotWeapon))
	assert.Nil(t, p.Player.Equipment[data.SlotWeapon])
	assert.Equal(t, p.Player.Base.Str, p.Player.Effective.Str)
}

func TestEquipRejectsNonEquipable(t *testing.T) {
	lg := ledger.NewMemory()
	r := testRuntime(t, lg)
	p := addTestPlayer(r, walletA, 1)
	mint(t, lg, walletA, "coal", 5)

	err := r.HandleEquip(walletA, p.ID, "coal")
	assert.Equal(t, "not_equipable", CodeOf(err))
}

func TestLearnFromTrainer(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 1)
	trainer := addNpcAt(r, "Drillmaster Oka", "trainer", p.X+2, p.Y, nil,
		[]string{"power_strike"})
	profTrainer := addNpcAt(r, "Forewoman Ila", "profession-trainer", p.X+3, p.Y, nil,
		[]string{data.ProfessionMining})

	require.NoError(t, r.HandleLearn(walletA, p.ID, trainer.ID, "power_strike"))
	assert.True(t, p.Player.HasLearned("power_strike"))

	err := r.HandleLearn(walletA, p.ID, trainer.ID, "power_strike")
	assert.Equal(t, "already_learned", CodeOf(err))

	err = r.HandleLearn(walletA, p.ID, trainer.ID, data.ProfessionMining)
	assert.Equal(t, "not_taught", CodeOf(err))

	require.NoError(t, r.HandleLearn(walletA, p.ID, profTrainer.ID, data.ProfessionMining))
	assert.True(t, p.Player.HasProfession(data.ProfessionMining))
}
