package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/world"
)

func questZone(t *testing.T, lg ledger.Ledger) (*Runtime, *world.Entity, *world.Entity) {
	r := testRuntime(t, lg)
	p := addTestPlayer(r, walletA, 1)
	elder := addNpcAt(r, "Elder Rowan", "quest-giver", p.X+2, p.Y, nil, nil)
	return r, p, elder
}

func TestQuestAcceptValidations(t *testing.T) {
	r, p, elder := questZone(t, ledger.NewMemory())
	smith := addNpcAt(r, "Smith Berra", "quest-giver", p.X+3, p.Y, nil, nil)

	err := r.HandleAcceptQuest(walletA, p.ID, smith.ID, "rat_extermination")
	assert.Equal(t, "wrong_npc", CodeOf(err))

	err = r.HandleAcceptQuest(walletA, p.ID, elder.ID, "deeper_tunnels")
	assert.Equal(t, "prerequisite_missing", CodeOf(err))

	require.NoError(t, r.HandleAcceptQuest(walletA, p.ID, elder.ID, "rat_extermination"))
	err = r.HandleAcceptQuest(walletA, p.ID, elder.ID, "rat_extermination")
	assert.Equal(t, "quest_active", CodeOf(err))
}

func TestKillQuestProgressCapsAtCount(t *testing.T) {
	r, p, elder := questZone(t, ledger.NewMemory())
	require.NoError(t, r.HandleAcceptQuest(walletA, p.ID, elder.ID, "rat_extermination"))

	for i := 0; i < 5; i++ {
		rat := addMobAt(r, "giant_rat", p.X+1, p.Y)
		rat.Mob.HP = 1
		require.NoError(t, r.HandleAttack(walletA, p.ID, rat.ID))
		require.False(t, rat.Mob.Alive)
		// Clear the swing cooldown before the next kill.
		r.StepTick()
		r.StepTick()
	}
	qp := p.Player.ActiveQuest("rat_extermination")
	require.NotNil(t, qp)
	assert.Equal(t, 3, qp.Progress, "progress stops at the quest count")
}

func TestTurnInGrantsRewardsAndCompletes(t *testing.T) {
	lg := ledger.NewMemory()
	r, p, elder := questZone(t, lg)
	require.NoError(t, r.HandleAcceptQuest(walletA, p.ID, elder.ID, "rat_extermination"))

	err := r.HandleTurnInQuest(walletA, p.ID, elder.ID, "rat_extermination")
	assert.Equal(t, "quest_incomplete", CodeOf(err))

	p.Player.ActiveQuest("rat_extermination").Progress = 3
	startXP := p.Player.XP
	require.NoError(t, r.HandleTurnInQuest(walletA, p.ID, elder.ID, "rat_extermination"))

	assert.Equal(t, startXP+50, p.Player.XP)
	assert.Equal(t, int64(25), balance(t, lg, walletA, ledger.CurrencyToken))
	assert.Equal(t, int64(1), balance(t, lg, walletA, "health_potion"))
	assert.True(t, p.Player.HasCompleted("rat_extermination"))
	assert.Nil(t, p.Player.ActiveQuest("rat_extermination"))

	// Completed quests cannot rerun, but they unlock their chain.
	err = r.HandleAcceptQuest(walletA, p.ID, elder.ID, "rat_extermination")
	assert.Equal(t, "quest_completed", CodeOf(err))
	assert.NoError(t, r.HandleAcceptQuest(walletA, p.ID, elder.ID, "deeper_tunnels"))
}

func TestTurnInRewardMintFailureKeepsCompletion(t *testing.T) {
	lg := ledger.NewMemory()
	lg.Fault = func(op, wallet, tokenID string) error {
		if op == "mint" && tokenID == ledger.CurrencyToken {
			return &ledger.Error{Kind: ledger.Transient, Op: op, Err: assert.AnError}
		}
		return nil
	}
	r, p, elder := questZone(t, lg)
	require.NoError(t, r.HandleAcceptQuest(walletA, p.ID, elder.ID, "rat_extermination"))
	p.Player.ActiveQuest("rat_extermination").Progress = 3

	err := r.HandleTurnInQuest(walletA, p.ID, elder.ID, "rat_extermination")
	require.Error(t, err)
	assert.Equal(t, KindLedgerTransient, KindOf(err))
	assert.True(t, p.Player.HasCompleted("rat_extermination"), "completion is never reopened")
}

func TestTalkQuestCompletesOnTalk(t *testing.T) {
	r, p, elder := questZone(t, ledger.NewMemory())
	smith := addNpcAt(r, "Smith Berra", "trainer", p.X+3, p.Y, nil, nil)
	require.NoError(t, r.HandleAcceptQuest(walletA, p.ID, elder.ID, "meet_the_smith"))

	err := r.HandleTalkQuest(walletA, p.ID, elder.ID)
	assert.Equal(t, "no_talk_quest", CodeOf(err), "wrong npc advances nothing")

	require.NoError(t, r.HandleTalkQuest(walletA, p.ID, smith.ID))
	require.NoError(t, r.HandleTurnInQuest(walletA, p.ID, elder.ID, "meet_the_smith"))
	assert.True(t, p.Player.HasCompleted("meet_the_smith"))
}

func TestTalkQuestAutoAcceptsAtOfferNpc(t *testing.T) {
	r, p, elder := questZone(t, ledger.NewMemory())
	smith := addNpcAt(r, "Smith Berra", "trainer", p.X+3, p.Y, nil, nil)

	// Talking to the offer NPC accepts the eligible talk quest on the
	// spot, without a separate accept verb.
	require.NoError(t, r.HandleTalkQuest(walletA, p.ID, elder.ID))
	require.NotNil(t, p.Player.ActiveQuest("meet_the_smith"))

	// A second visit has nothing left to offer or complete.
	err := r.HandleTalkQuest(walletA, p.ID, elder.ID)
	assert.Equal(t, "no_talk_quest", CodeOf(err))

	require.NoError(t, r.HandleTalkQuest(walletA, p.ID, smith.ID))
	require.NoError(t, r.HandleTurnInQuest(walletA, p.ID, elder.ID, "meet_the_smith"))
	assert.True(t, p.Player.HasCompleted("meet_the_smith"))
}

func TestQuestNpcProximityEnforced(t *testing.T) {
	r, p, _ := questZone(t, ledger.NewMemory())
	far := addNpcAt(r, "Hermit", "quest-giver", p.X+200, p.Y, nil, nil)

	err := r.HandleAcceptQuest(walletA, p.ID, far.ID, "rat_extermination")
	assert.Equal(t, "out_of_range", CodeOf(err))
}
