package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/world"
)

func TestGateInstancePopulation(t *testing.T) {
	deps := testDeps(t, ledger.NewMemory())
	rank := deps.Catalog.Gates.Get("E")
	r := NewGateInstance("gate-test-1", rank, false, 99, deps)

	mobs, bosses := 0, 0
	for _, e := range r.entities {
		switch e.Type {
		case world.TypeMob:
			mobs++
		case world.TypeBoss:
			bosses++
		}
	}
	assert.Equal(t, 3, mobs)
	assert.Equal(t, 1, bosses)
	assert.False(t, r.Cleared())
}

func TestGateInstanceDangerScaling(t *testing.T) {
	deps := testDeps(t, ledger.NewMemory())
	rank := deps.Catalog.Gates.Get("E")
	normal := NewGateInstance("gate-n", rank, false, 7, deps)
	danger := NewGateInstance("gate-d", rank, true, 7, deps)

	ratHP := func(r *Runtime) int {
		for _, e := range r.entities {
			if e.Type == world.TypeMob {
				return e.Mob.MaxHP
			}
		}
		return 0
	}
	assert.Equal(t, 2*ratHP(normal), ratHP(danger))

	for _, e := range danger.entities {
		if e.Mob != nil {
			assert.Equal(t, rank.MobLevel, e.Mob.Level)
		}
	}
}

func TestGateInstanceMobsNeverRespawn(t *testing.T) {
	deps := testDeps(t, ledger.NewMemory())
	rank := deps.Catalog.Gates.Get("E")
	r := NewGateInstance("gate-test-2", rank, false, 3, deps)
	p := addTestPlayer(r, walletA, 20)

	for _, e := range r.entities {
		if e.Mob != nil {
			r.applyDamage(p, e, e.Mob.HP)
		}
	}
	require.True(t, r.Cleared())

	for i := 0; i < 100; i++ {
		r.StepTick()
	}
	assert.True(t, r.Cleared(), "instance mobs stay dead")
}

func TestGateInstanceRejectsUnderleveled(t *testing.T) {
	deps := testDeps(t, ledger.NewMemory())
	rank := deps.Catalog.Gates.Get("E")
	r := NewGateInstance("gate-test-3", rank, false, 5, deps)

	e := &world.Entity{
		ID: world.NextEntityID(), Type: world.TypePlayer, Name: "lowbie",
		Player: &world.PlayerState{Wallet: walletA, Level: 0, Vitals: world.Vitals{Alive: true}},
	}
	err := r.InsertPlayer(e, 2, 2)
	assert.Equal(t, "level_too_low", CodeOf(err))
}

func TestPlayerIDsListsOnlyPlayers(t *testing.T) {
	deps := testDeps(t, ledger.NewMemory())
	rank := deps.Catalog.Gates.Get("E")
	r := NewGateInstance("gate-test-4", rank, false, 5, deps)
	require.Empty(t, r.PlayerIDs())

	p := addTestPlayer(r, walletA, 20)
	ids := r.PlayerIDs()
	require.Len(t, ids, 1)
	assert.Equal(t, p.ID, ids[0])
}
