package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTerrainDeterministic(t *testing.T) {
	a := GenerateTerrain(42, 64, 64)
	b := GenerateTerrain(42, 64, 64)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			assert.Equal(t, a.At(x, y), b.At(x, y))
		}
	}
}

func TestTerrainOutOfBoundsImpassable(t *testing.T) {
	tr := GenerateTerrain(1, 8, 8)
	assert.False(t, tr.Walkable(-1, 0))
	assert.False(t, tr.Walkable(8, 0))
	assert.Greater(t, tr.MoveCost(-1, -1), 1000)
}

func TestTerrainChunkDiffRoundTrip(t *testing.T) {
	tr := GenerateTerrain(7, 64, 64)
	tr.SetTile(3, 4, Tile{Walkable: false, Cost: 0})
	tr.SetTile(20, 40, Tile{Walkable: true, Cost: 3})
	tr.SetObjectState(3, 4, "door:3:4", "open")

	chunks := tr.ModifiedChunks()
	require.Len(t, chunks, 2) // (0,0) and (1,2)

	// A fresh terrain from the same seed plus the diffs matches.
	fresh := GenerateTerrain(7, 64, 64)
	fresh.ApplyChunks(chunks)
	assert.Equal(t, Tile{Walkable: false, Cost: 0}, fresh.At(3, 4))
	assert.Equal(t, Tile{Walkable: true, Cost: 3}, fresh.At(20, 40))
}

func TestTerrainUnmodifiedHasNoChunks(t *testing.T) {
	tr := GenerateTerrain(7, 32, 32)
	assert.Empty(t, tr.ModifiedChunks())
}
