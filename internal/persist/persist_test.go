package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardworld/server/internal/world"
)

func TestNormalizeNameNFC(t *testing.T) {
	// "é" as a precomposed rune vs e + combining acute.
	composed := "Rémi"
	decomposed := "Rémi"
	assert.Equal(t, NormalizeName(composed), NormalizeName(decomposed))
}

func TestMemStoreCharacterRoundTrip(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_, err := s.Load(ctx, "0xabc", "Hero")
	assert.ErrorIs(t, err, ErrNotFound)

	c := &Character{
		Wallet: "0xabc", Name: "Hero", RaceID: "human", ClassID: "warrior",
		Level: 4, XP: 600, ZoneID: "meadow", X: 10, Y: 12,
		Professions: []string{"mining"},
		Equipment: map[string]EquippedItemRecord{
			"weapon": {TokenID: "rusty_sword", Durability: 7, MaxDurability: 20},
		},
	}
	require.NoError(t, s.Save(ctx, c))

	got, err := s.Load(ctx, "0xabc", "Hero")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Level)
	assert.Equal(t, "rusty_sword", got.Equipment["weapon"].TokenID)

	// Mutating the loaded copy does not touch the stored one.
	got.Level = 99
	again, err := s.Load(ctx, "0xabc", "Hero")
	require.NoError(t, err)
	assert.Equal(t, 4, again.Level)

	names, err := s.List(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hero"}, names)
}

func TestMemStoreChunks(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.SaveChunks(ctx, "meadow", []world.ChunkState{
		{CX: 0, CZ: 0, TileDiffs: []world.TileDiff{{X: 3, Y: 4}}},
		{CX: 1, CZ: 2},
	}))
	// Second save of the same chunk overwrites.
	require.NoError(t, s.SaveChunks(ctx, "meadow", []world.ChunkState{
		{CX: 0, CZ: 0, TileDiffs: []world.TileDiff{{X: 5, Y: 6}}},
	}))

	chunks, err := s.LoadChunks(ctx, "meadow")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	empty, err := s.LoadChunks(ctx, "cavern")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
