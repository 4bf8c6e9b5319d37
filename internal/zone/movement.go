package zone

import "github.com/shardworld/server/internal/world"

// HandleMove repositions a player inside the zone. The destination must
// be in bounds and walkable; dead players cannot move.
func (r *Runtime) HandleMove(wallet string, id world.EntityID, x, y int) error {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return zerr
	}
	if !r.terrain.InBounds(x, y) {
		return errValidation("out_of_bounds", "(%d,%d)", x, y)
	}
	if !r.terrain.Walkable(x, y) {
		return errPrecondition("blocked", "(%d,%d) not walkable", x, y)
	}
	e.X, e.Y = x, y
	r.grid.Move(e.ID, x, y)
	return nil
}

// stepToward moves an entity one tile toward a target point, skipping
// the move if the destination tile is blocked. Rough terrain slows the
// mover down: a tile of cost c is only entered on ticks divisible by c.
func (r *Runtime) stepToward(e *world.Entity, tx, ty int) {
	dx, dy := 0, 0
	if tx > e.X {
		dx = 1
	} else if tx < e.X {
		dx = -1
	}
	if ty > e.Y {
		dy = 1
	} else if ty < e.Y {
		dy = -1
	}
	if dx == 0 && dy == 0 {
		return
	}
	nx, ny := e.X+dx, e.Y+dy
	if !r.terrain.Walkable(nx, ny) {
		// Try the axis-aligned alternatives before giving up.
		if dx != 0 && r.terrain.Walkable(e.X+dx, e.Y) {
			nx, ny = e.X+dx, e.Y
		} else if dy != 0 && r.terrain.Walkable(e.X, e.Y+dy) {
			nx, ny = e.X, e.Y+dy
		} else {
			return
		}
	}
	if cost := r.terrain.MoveCost(nx, ny); cost > 1 && r.tick%int64(cost) != 0 {
		return
	}
	e.X, e.Y = nx, ny
	r.grid.Move(e.ID, nx, ny)
}
