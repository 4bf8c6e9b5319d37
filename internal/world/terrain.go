package world

import (
	"math/rand"
)

// ChunkSize is the side length of one terrain chunk in tiles.
const ChunkSize = 16

// Tile is one terrain cell.
type Tile struct {
	Walkable bool  `json:"walkable"`
	Cost     uint8 `json:"cost"` // movement cost weight, 1 = normal
}

// ChunkKey addresses one 16x16 chunk.
type ChunkKey struct {
	CX int `json:"cx"`
	CZ int `json:"cz"`
}

// TileDiff is one persisted tile edit inside a chunk.
type TileDiff struct {
	X        int   `json:"x"` // zone coordinates
	Y        int   `json:"y"`
	Walkable bool  `json:"walkable"`
	Cost     uint8 `json:"cost"`
}

// ChunkState is the persisted state of one modified chunk. Unmodified
// chunks are never persisted; the base terrain regenerates from the seed.
type ChunkState struct {
	CX           int               `json:"cx"`
	CZ           int               `json:"cz"`
	TileDiffs    []TileDiff        `json:"tileDiffs"`
	ObjectStates map[string]string `json:"objectStates,omitempty"`
}

// Terrain is a zone's tile array with chunked modification tracking.
// Owned by a single zone runtime — no locks.
type Terrain struct {
	Width  int
	Height int
	tiles  []Tile

	diffs   map[ChunkKey]map[[2]int]Tile
	objects map[ChunkKey]map[string]string
}

// GenerateTerrain builds a zone's base terrain deterministically from a
// seed: mostly walkable plains with rock outcrops and rough patches.
func GenerateTerrain(seed int64, width, height int) *Terrain {
	t := &Terrain{
		Width:   width,
		Height:  height,
		tiles:   make([]Tile, width*height),
		diffs:   make(map[ChunkKey]map[[2]int]Tile),
		objects: make(map[ChunkKey]map[string]string),
	}
	rng := rand.New(rand.NewSource(seed))
	for i := range t.tiles {
		roll := rng.Intn(100)
		switch {
		case roll < 4: // rock, impassable
			t.tiles[i] = Tile{Walkable: false, Cost: 0}
		case roll < 14: // rough ground
			t.tiles[i] = Tile{Walkable: true, Cost: 2}
		default:
			t.tiles[i] = Tile{Walkable: true, Cost: 1}
		}
	}
	return t
}

// InBounds reports whether (x, y) lies inside the zone.
func (t *Terrain) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < t.Width && y < t.Height
}

// At returns the tile at (x, y). Out-of-bounds tiles are impassable.
func (t *Terrain) At(x, y int) Tile {
	if !t.InBounds(x, y) {
		return Tile{Walkable: false}
	}
	return t.tiles[y*t.Width+x]
}

// Walkable reports whether (x, y) can be entered.
func (t *Terrain) Walkable(x, y int) bool {
	return t.At(x, y).Walkable
}

// MoveCost returns the cost of entering (x, y), or a large cost for
// unwalkable tiles so straight-line AI steps avoid them.
func (t *Terrain) MoveCost(x, y int) int {
	tile := t.At(x, y)
	if !tile.Walkable {
		return 1 << 16
	}
	return int(tile.Cost)
}

func chunkOf(x, y int) ChunkKey {
	return ChunkKey{CX: x / ChunkSize, CZ: y / ChunkSize}
}

// SetTile edits a tile and records the edit in the chunk diff set.
func (t *Terrain) SetTile(x, y int, tile Tile) {
	if !t.InBounds(x, y) {
		return
	}
	t.tiles[y*t.Width+x] = tile
	k := chunkOf(x, y)
	m := t.diffs[k]
	if m == nil {
		m = make(map[[2]int]Tile)
		t.diffs[k] = m
	}
	m[[2]int{x, y}] = tile
}

// SetObjectState records placed-object state on the chunk containing (x, y).
func (t *Terrain) SetObjectState(x, y int, key, value string) {
	if !t.InBounds(x, y) {
		return
	}
	ck := chunkOf(x, y)
	m := t.objects[ck]
	if m == nil {
		m = make(map[string]string)
		t.objects[ck] = m
	}
	m[key] = value
}

// ModifiedChunks returns the diff state of every modified chunk.
func (t *Terrain) ModifiedChunks() []ChunkState {
	keys := make(map[ChunkKey]struct{}, len(t.diffs)+len(t.objects))
	for k := range t.diffs {
		keys[k] = struct{}{}
	}
	for k := range t.objects {
		keys[k] = struct{}{}
	}
	out := make([]ChunkState, 0, len(keys))
	for k := range keys {
		cs := ChunkState{CX: k.CX, CZ: k.CZ}
		for pos, tile := range t.diffs[k] {
			cs.TileDiffs = append(cs.TileDiffs, TileDiff{
				X: pos[0], Y: pos[1], Walkable: tile.Walkable, Cost: tile.Cost,
			})
		}
		if obj := t.objects[k]; len(obj) > 0 {
			cs.ObjectStates = make(map[string]string, len(obj))
			for ok, ov := range obj {
				cs.ObjectStates[ok] = ov
			}
		}
		out = append(out, cs)
	}
	return out
}

// ApplyChunks replays persisted chunk states over the base terrain.
func (t *Terrain) ApplyChunks(states []ChunkState) {
	for _, cs := range states {
		for _, d := range cs.TileDiffs {
			t.SetTile(d.X, d.Y, Tile{Walkable: d.Walkable, Cost: d.Cost})
		}
		for k, v := range cs.ObjectStates {
			ck := ChunkKey{CX: cs.CX, CZ: cs.CZ}
			m := t.objects[ck]
			if m == nil {
				m = make(map[string]string)
				t.objects[ck] = m
			}
			m[k] = v
		}
	}
}
