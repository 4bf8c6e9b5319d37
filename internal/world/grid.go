package world

// SpatialIndex is a cell-bucketed 2D grid over entity positions. Radius
// queries touch only the cells overlapping the query square, so cost is
// proportional to the number of nearby entities. Owned by a single zone
// runtime — no locks.
type SpatialIndex struct {
	cellSize int
	cells    map[cellKey]map[EntityID]struct{}
	pos      map[EntityID][2]int
}

type cellKey struct {
	cx int
	cy int
}

// NewSpatialIndex creates an index with the given cell size.
func NewSpatialIndex(cellSize int) *SpatialIndex {
	if cellSize <= 0 {
		cellSize = 16
	}
	return &SpatialIndex{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[EntityID]struct{}),
		pos:      make(map[EntityID][2]int),
	}
}

func (g *SpatialIndex) coord(v int) int {
	if v < 0 {
		return (v - g.cellSize + 1) / g.cellSize
	}
	return v / g.cellSize
}

func (g *SpatialIndex) key(x, y int) cellKey {
	return cellKey{cx: g.coord(x), cy: g.coord(y)}
}

// Add places an entity into the grid.
func (g *SpatialIndex) Add(id EntityID, x, y int) {
	k := g.key(x, y)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
	g.pos[id] = [2]int{x, y}
}

// Remove takes an entity out of the grid.
func (g *SpatialIndex) Remove(id EntityID) {
	p, ok := g.pos[id]
	if !ok {
		return
	}
	k := g.key(p[0], p[1])
	if cell := g.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
	delete(g.pos, id)
}

// Move updates an entity's cell when its position changes.
func (g *SpatialIndex) Move(id EntityID, newX, newY int) {
	p, ok := g.pos[id]
	if ok && g.key(p[0], p[1]) == g.key(newX, newY) {
		g.pos[id] = [2]int{newX, newY}
		return
	}
	g.Remove(id)
	g.Add(id, newX, newY)
}

// Len returns the number of indexed entities.
func (g *SpatialIndex) Len() int {
	return len(g.pos)
}

// Clear empties the index, keeping allocated maps.
func (g *SpatialIndex) Clear() {
	clear(g.cells)
	clear(g.pos)
}

// WithinInto appends all entity ids within Chebyshev distance r of (x, y)
// to buf and returns it. buf is reset first; pass a reused slice to avoid
// per-query allocation (the zone runtime keeps one).
func (g *SpatialIndex) WithinInto(x, y, r int, buf []EntityID) []EntityID {
	buf = buf[:0]
	if r < 0 {
		return buf
	}
	minCX, maxCX := g.coord(x-r), g.coord(x+r)
	minCY, maxCY := g.coord(y-r), g.coord(y+r)
	for cx := minCX; cx <= maxCX; cx++ {
		for cy := minCY; cy <= maxCY; cy++ {
			for id := range g.cells[cellKey{cx: cx, cy: cy}] {
				p := g.pos[id]
				if Chebyshev(x, y, p[0], p[1]) <= r {
					buf = append(buf, id)
				}
			}
		}
	}
	return buf
}

// Within returns all entity ids within Chebyshev distance r of (x, y).
func (g *SpatialIndex) Within(x, y, r int) []EntityID {
	return g.WithinInto(x, y, r, nil)
}
