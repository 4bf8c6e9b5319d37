package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardworld/server/internal/ledger"
)

func TestCastEssenceExactCostSucceeds(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 1)
	p.Player.Learned = []string{"power_strike"}
	rat := addMobAt(r, "giant_rat", p.X+1, p.Y)

	p.Player.Essence = 10 // exactly the cost
	require.NoError(t, r.HandleCast(walletA, p.ID, "power_strike", rat.ID))
	assert.Zero(t, p.Player.Essence)

	err := r.HandleCast(walletA, p.ID, "power_strike", rat.ID)
	assert.Equal(t, KindPrecondition, KindOf(err))
	assert.Equal(t, "insufficient_essence", CodeOf(err))
}

func TestCastCooldownConflicts(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 1)
	p.Player.Learned = []string{"power_strike"}
	rat := addMobAt(r, "giant_rat", p.X+1, p.Y)

	require.NoError(t, r.HandleCast(walletA, p.ID, "power_strike", rat.ID))
	err := r.HandleCast(walletA, p.ID, "power_strike", rat.ID)
	assert.Equal(t, KindConflict, KindOf(err))

	// Cooldown is 4 ticks.
	for i := 0; i < 5; i++ {
		r.StepTick()
	}
	assert.NoError(t, r.HandleCast(walletA, p.ID, "power_strike", rat.ID))
}

func TestCastEssenceCheckedBeforeCooldown(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 1)
	p.Player.Learned = []string{"power_strike"}
	rat := addMobAt(r, "giant_rat", p.X+1, p.Y)

	require.NoError(t, r.HandleCast(walletA, p.ID, "power_strike", rat.ID))
	p.Player.Essence = 0

	// Broke and on cooldown at once: the essence shortfall wins.
	err := r.HandleCast(walletA, p.ID, "power_strike", rat.ID)
	assert.Equal(t, KindPrecondition, KindOf(err))
	assert.Equal(t, "insufficient_essence", CodeOf(err))
}

func TestCastRequiresLearned(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 1)
	rat := addMobAt(r, "giant_rat", p.X+1, p.Y)

	err := r.HandleCast(walletA, p.ID, "power_strike", rat.ID)
	assert.Equal(t, "not_learned", CodeOf(err))
}

func TestBuffBoostsDamageAndExpires(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 1)
	p.Player.Learned = []string{"battle_shout"}
	bear := addMobAt(r, "cave_bear", p.X+1, p.Y)

	plain := r.damage(p, bear, 0)
	require.NoError(t, r.HandleCast(walletA, p.ID, "battle_shout", p.ID))
	buffed := r.damage(p, bear, 0)
	assert.Equal(t, plain*120/100, buffed)

	// Duration is 10 ticks; the effect phase drops it afterwards.
	for i := 0; i < 12; i++ {
		r.StepTick()
	}
	assert.Empty(t, p.Player.Effects)
	assert.Equal(t, plain, r.damage(p, bear, 0))
}

func TestEffectPercentageCapped(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 1)
	p.Player.Learned = []string{"frenzy"} // +200%, far over the 75% cap
	bear := addMobAt(r, "cave_bear", p.X+1, p.Y)

	plain := r.damage(p, bear, 0)
	require.NoError(t, r.HandleCast(walletA, p.ID, "frenzy", p.ID))
	assert.Equal(t, plain*175/100, r.damage(p, bear, 0))
}

func TestReapplySameEffectRefreshesNotStacks(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 1)
	p.Player.Learned = []string{"battle_shout"}

	require.NoError(t, r.HandleCast(walletA, p.ID, "battle_shout", p.ID))
	r.StepTick()
	r.StepTick()
	r.StepTick()
	require.NoError(t, r.HandleCast(walletA, p.ID, "battle_shout", p.ID))
	assert.Len(t, p.Player.Effects, 1)
}

func TestHostileEffectRequiresMobTarget(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 1)
	p.Player.Learned = []string{"poison_dart"}
	other := addTestPlayer(r, walletB, 1)
	rat := addMobAt(r, "giant_rat", p.X+2, p.Y)

	// A dot carries no hit damage but still lands on mobs, not players.
	err := r.HandleCast(walletA, p.ID, "poison_dart", other.ID)
	assert.Equal(t, "invalid_target", CodeOf(err))

	require.NoError(t, r.HandleCast(walletA, p.ID, "poison_dart", rat.ID))
	assert.Len(t, rat.Mob.Effects, 1)
}

func TestDotTicksAndKillsWithoutCredit(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 1)
	p.Player.Learned = []string{"poison_dart"}
	rat := addMobAt(r, "giant_rat", p.X+2, p.Y)
	rat.Mob.HP = 5

	startXP := p.Player.XP
	require.NoError(t, r.HandleCast(walletA, p.ID, "poison_dart", rat.ID))

	for i := 0; i < 10 && rat.Mob.Alive; i++ {
		r.StepTick()
	}
	require.False(t, rat.Mob.Alive, "dot should finish the rat")
	assert.Equal(t, startXP, p.Player.XP, "unattributed deaths award nothing")
	assert.Zero(t, p.Player.Kills)
}

func TestCastOutOfRange(t *testing.T) {
	r := testRuntime(t, ledger.NewMemory())
	p := addTestPlayer(r, walletA, 1)
	p.Player.Learned = []string{"power_strike"}
	rat := addMobAt(r, "giant_rat", p.X+10, p.Y)

	err := r.HandleCast(walletA, p.ID, "power_strike", rat.ID)
	assert.Equal(t, "out_of_range", CodeOf(err))
	assert.Equal(t, p.Player.MaxEssence, p.Player.Essence, "failed casts cost nothing")
}
