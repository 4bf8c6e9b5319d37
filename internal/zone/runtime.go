// Package zone implements the per-zone simulation runtime. Each zone is
// a single-goroutine actor: all entity state is owned by the tick loop
// and mutated only there. Other goroutines reach it through Exec/Post,
// which enqueue commands onto the tick queue.
package zone

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/shardworld/server/internal/config"
	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/scripting"
	"github.com/shardworld/server/internal/world"
)

// Roster resolves party membership for XP splits. Implemented by the
// world-level party manager; nil means no parties.
type Roster interface {
	Members(id world.EntityID) []world.EntityID
}

// Relocator moves a respawning player back to their home zone. The call
// must not block the zone goroutine. Nil means players respawn locally.
type Relocator interface {
	RespawnHome(e *world.Entity, fromZone string)
}

// Deps bundles everything a runtime needs beyond its zone definition.
type Deps struct {
	Log     *zap.Logger
	Ledger  ledger.Ledger
	Catalog *data.Catalog
	Scripts *scripting.Engine
	Roster  Roster
	Reloc   Relocator
	Game    config.GameConfig
	Rates   config.RatesConfig

	// LedgerTimeout bounds each blocking ledger call made from the
	// tick loop.
	LedgerTimeout time.Duration

	// TickInterval overrides Game.TickInterval when non-zero
	// (dungeon instances tick slower).
	TickInterval time.Duration
}

type op struct {
	fn func(r *Runtime)
}

// Runtime is one zone's simulation actor.
type Runtime struct {
	id       string
	name     string
	minLevel int
	instance bool // gate instances: mobs never respawn
	spawnX   int
	spawnY   int

	deps    Deps
	log     *zap.Logger
	terrain *world.Terrain
	grid    *world.SpatialIndex

	entities map[world.EntityID]*world.Entity
	tick     int64
	inbox    chan op
	events   *EventLog
	rng      *rand.Rand

	def  *data.ZoneDef // nil for gate instances
	quit chan struct{}

	gridBuf []world.EntityID
}

// NewRuntime builds a zone actor from its static definition and spawns
// the initial population. The runtime does not tick until Run is called
// (or StepTick in tests).
func NewRuntime(def *data.ZoneDef, deps Deps) *Runtime {
	r := newBareRuntime(def.ID, def.Name, def.MinLevel, def.Width, def.Height, def.Seed, deps)
	r.def = def
	r.spawnX, r.spawnY = def.SpawnX, def.SpawnY
	r.populate(def)
	return r
}

func newBareRuntime(id, name string, minLevel, width, height int, seed int64, deps Deps) *Runtime {
	queue := deps.Game.ActionQueueSize
	if queue <= 0 {
		queue = 256
	}
	logSize := deps.Game.EventLogSize
	return &Runtime{
		id:       id,
		name:     name,
		minLevel: minLevel,
		deps:     deps,
		log:      deps.Log.With(zap.String("zone", id)),
		terrain:  world.GenerateTerrain(seed, width, height),
		grid:     world.NewSpatialIndex(16),
		entities: make(map[world.EntityID]*world.Entity),
		inbox:    make(chan op, queue),
		events:   NewEventLog(logSize),
		rng:      rand.New(rand.NewSource(seed)),
		quit:     make(chan struct{}),
	}
}

// ID returns the zone id.
func (r *Runtime) ID() string { return r.id }

// MinLevel returns the minimum level required to enter.
func (r *Runtime) MinLevel() int { return r.minLevel }

// Tick returns the current tick counter. Only meaningful from inside
// the actor (Exec closures, tests).
func (r *Runtime) Tick() int64 { return r.tick }

// Run drives the tick loop until ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	interval := r.deps.TickInterval
	if interval <= 0 {
		interval = r.deps.Game.TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	r.log.Info("zone running",
		zap.String("name", r.name),
		zap.Duration("tick", interval),
		zap.Int("entities", len(r.entities)))
	for {
		select {
		case <-ctx.Done():
			close(r.quit)
			r.log.Info("zone stopped", zap.Int64("ticks", r.tick))
			return nil
		case <-ticker.C:
			r.StepTick()
		}
	}
}

// StepTick advances the simulation one tick: effects and timers first,
// then the queued actions in FIFO order, then mob AI, engaged combat,
// and respawns. Exported for deterministic tests.
func (r *Runtime) StepTick() {
	r.tick++
	r.tickEffects()
	r.drainInbox()
	r.tickMobAI()
	r.tickCombat()
	r.tickRespawns()
}

func (r *Runtime) drainInbox() {
	for {
		select {
		case o := <-r.inbox:
			o.fn(r)
		default:
			return
		}
	}
}

// Exec enqueues fn onto the tick queue and waits for it to call done.
// fn runs on the zone goroutine during the next action phase; it must
// call done exactly once, possibly later via Post for deferred work.
func (r *Runtime) Exec(ctx context.Context, fn func(r *Runtime, done func(error))) error {
	ch := make(chan error, 1)
	cb := func(err error) {
		select {
		case ch <- err:
		default:
		}
	}
	select {
	case r.inbox <- op{fn: func(rt *Runtime) { fn(rt, cb) }}:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.quit:
		return errInternal("zone_stopped", "%s", r.id)
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.quit:
		return errInternal("zone_stopped", "%s", r.id)
	}
}

// ExecFunc is Exec for synchronous handlers.
func (r *Runtime) ExecFunc(ctx context.Context, fn func(r *Runtime) error) error {
	return r.Exec(ctx, func(rt *Runtime, done func(error)) { done(fn(rt)) })
}

// Post enqueues fn without waiting. Used by completion goroutines to
// re-enter the actor; blocks only when the queue is full.
func (r *Runtime) Post(fn func(r *Runtime)) {
	select {
	case r.inbox <- op{fn: fn}:
	case <-r.quit:
	}
}

// ledgerCtx returns the bounded context for a blocking ledger call made
// from the tick loop.
func (r *Runtime) ledgerCtx() (context.Context, context.CancelFunc) {
	timeout := r.deps.LedgerTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (r *Runtime) event(kind string, actor, target world.EntityID, note string) {
	r.events.Add(Event{Tick: r.tick, Kind: kind, Actor: actor, Target: target, Note: note})
}

// Events returns up to n recent events, oldest first. Call from inside
// the actor.
func (r *Runtime) Events(n int) []Event {
	return r.events.Tail(n)
}

// populate spawns the initial zone content from its definition.
func (r *Runtime) populate(def *data.ZoneDef) {
	for _, spawn := range def.Mobs {
		tpl := r.deps.Catalog.Mobs.Get(spawn.MobID)
		if tpl == nil {
			r.log.Warn("unknown mob template in zone def", zap.String("mob", spawn.MobID))
			continue
		}
		count := spawn.Count
		if count <= 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			x, y := spawn.X, spawn.Y
			if spawn.RandomX > 0 {
				x += r.rng.Intn(2*spawn.RandomX+1) - spawn.RandomX
			}
			if spawn.RandomY > 0 {
				y += r.rng.Intn(2*spawn.RandomY+1) - spawn.RandomY
			}
			x, y = r.nearestWalkable(x, y)
			r.addEntity(newMobEntity(tpl, x, y, 0, 1, 1, r.mobRespawnTicks(tpl)))
		}
	}
	for i := range def.Npcs {
		r.addEntity(newNpcEntity(&def.Npcs[i]))
	}
	for i := range def.Nodes {
		r.addEntity(newNodeEntity(&def.Nodes[i], r.deps.Game.NodeRespawnTicksDefault))
	}
	for _, st := range def.Stations {
		r.addEntity(&world.Entity{
			ID: world.NextEntityID(), Type: world.EntityType(st.Type),
			Name: st.Type, X: st.X, Y: st.Y,
		})
	}
	for i := range def.Portals {
		p := &def.Portals[i]
		r.addEntity(&world.Entity{
			ID: world.NextEntityID(), Type: world.TypePortalMarker,
			Name: p.Name, X: p.X, Y: p.Y,
			Portal: &world.PortalState{DestZone: p.DestZone, DestPortal: p.DestPortal},
		})
	}
	for i := range def.Gates {
		g := &def.Gates[i]
		r.addEntity(&world.Entity{
			ID: world.NextEntityID(), Type: world.TypeDungeonGate,
			Name: g.Name, X: g.X, Y: g.Y,
			Gate: &world.GateState{Rank: g.Rank, Danger: g.Danger},
		})
	}
}

func (r *Runtime) mobRespawnTicks(tpl *data.MobTemplate) int64 {
	if tpl.RespawnTicks > 0 {
		return tpl.RespawnTicks
	}
	return r.deps.Game.MobRespawnTicksDefault
}

// nearestWalkable nudges a spawn point off blocked tiles.
func (r *Runtime) nearestWalkable(x, y int) (int, int) {
	if r.terrain.Walkable(x, y) {
		return x, y
	}
	for radius := 1; radius <= 5; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if r.terrain.Walkable(x+dx, y+dy) {
					return x + dx, y + dy
				}
			}
		}
	}
	return x, y
}

func newMobEntity(tpl *data.MobTemplate, x, y, levelOverride int, hpScale, xpScale float64, respawnTicks int64) *world.Entity {
	typ := world.TypeMob
	if tpl.Boss {
		typ = world.TypeBoss
	}
	level := tpl.Level
	if levelOverride > 0 {
		level = levelOverride
	}
	hp := int(float64(tpl.HP) * hpScale)
	if hp < 1 {
		hp = 1
	}
	return &world.Entity{
		ID: world.NextEntityID(), Type: typ, Name: tpl.Name, X: x, Y: y,
		Mob: &world.MobState{
			TemplateID: tpl.ID,
			Level:      level,
			Vitals:     world.Vitals{HP: hp, MaxHP: hp, Alive: true},
			Str:        tpl.Str,
			Def:        tpl.Def,
			XP:         int64(float64(tpl.XP) * xpScale),

			Aggressive:     tpl.Aggressive,
			DetectRadius:   tpl.DetectRadius,
			StrikeRadius:   tpl.StrikeRadius,
			AttackCooldown: tpl.AttackCooldown,

			SpawnX:       x,
			SpawnY:       y,
			RespawnTicks: respawnTicks,
		},
	}
}

func newNpcEntity(def *data.NpcDef) *world.Entity {
	e := &world.Entity{
		ID: world.NextEntityID(), Type: world.EntityType(def.Type),
		Name: def.Name, X: def.X, Y: def.Y,
	}
	switch e.Type {
	case world.TypeMerchant, world.TypeAuctioneer:
		e.Merchant = &world.MerchantState{Sells: def.Sells}
	case world.TypeTrainer, world.TypeProfessionTrainer:
		e.Trainer = &world.TrainerState{Teaches: def.Teaches}
	}
	return e
}

func newNodeEntity(def *data.NodeDef, defaultRespawn int64) *world.Entity {
	respawn := def.RespawnTicks
	if respawn <= 0 {
		respawn = defaultRespawn
	}
	return &world.Entity{
		ID: world.NextEntityID(), Type: world.EntityType(def.Kind),
		Name: def.Resource, X: def.X, Y: def.Y,
		Node: &world.NodeState{
			Resource:       def.Resource,
			ItemID:         def.ItemID,
			Tier:           def.Tier,
			Charges:        def.Charges,
			MaxCharges:     def.Charges,
			DepletedAtTick: -1,
			RespawnTicks:   respawn,
		},
	}
}

func (r *Runtime) addEntity(e *world.Entity) {
	r.entities[e.ID] = e
	r.grid.Add(e.ID, e.X, e.Y)
}

func (r *Runtime) removeEntity(id world.EntityID) *world.Entity {
	e := r.entities[id]
	if e == nil {
		return nil
	}
	delete(r.entities, id)
	r.grid.Remove(id)
	return e
}

// InsertPlayer adds a player entity to the zone at the given position.
// Call from inside the actor (Exec). Rejects players below the zone's
// level floor.
func (r *Runtime) InsertPlayer(e *world.Entity, x, y int) error {
	if e.Player == nil {
		return errInternal("not_a_player", "entity %d", e.ID)
	}
	if e.Player.Level < r.minLevel {
		return errPrecondition("level_too_low", "zone %s requires level %d", r.id, r.minLevel)
	}
	if _, dup := r.entities[e.ID]; dup {
		return errConflict("already_present", "entity %d in zone %s", e.ID, r.id)
	}
	e.X, e.Y = r.nearestWalkable(x, y)
	e.Player.AttackTarget = 0
	r.addEntity(e)
	r.event("enter", e.ID, 0, e.Name)
	return nil
}

// RemovePlayer detaches a player entity from the zone and returns it.
// Call from inside the actor.
func (r *Runtime) RemovePlayer(id world.EntityID) (*world.Entity, error) {
	e := r.entities[id]
	if e == nil || e.Player == nil {
		return nil, errValidation("no_such_player", "entity %d in zone %s", id, r.id)
	}
	// Mobs aggroed on the leaver go home.
	for _, other := range r.entities {
		if other.Mob != nil && other.Mob.AggroTarget == id {
			other.Mob.AggroTarget = 0
		}
	}
	// Timed effects do not cross zone boundaries.
	dispelAll(e)
	e.Player.AttackTarget = 0
	e.Player.RecomputeEffective(r.deps.Catalog.Items)
	r.removeEntity(id)
	r.event("leave", id, 0, e.Name)
	return e, nil
}

// Entity returns an entity by id, or nil. Call from inside the actor.
func (r *Runtime) Entity(id world.EntityID) *world.Entity {
	return r.entities[id]
}

// SpawnPoint returns the zone's default entry position.
func (r *Runtime) SpawnPoint() (int, int) { return r.spawnX, r.spawnY }

// Terrain exposes the zone terrain for persistence snapshots. Call from
// inside the actor.
func (r *Runtime) Terrain() *world.Terrain { return r.terrain }

// player resolves an action subject: the entity must exist, be a player
// and be owned by wallet.
func (r *Runtime) player(wallet string, id world.EntityID) (*world.Entity, *Error) {
	e := r.entities[id]
	if e == nil || e.Player == nil {
		return nil, errValidation("no_such_player", "entity %d", id)
	}
	if e.Player.Wallet != wallet {
		return nil, errAuthorization("wallet_mismatch", "entity %d not owned by caller", id)
	}
	return e, nil
}

func (r *Runtime) alivePlayer(wallet string, id world.EntityID) (*world.Entity, *Error) {
	e, zerr := r.player(wallet, id)
	if zerr != nil {
		return nil, zerr
	}
	if !e.Player.Alive {
		return nil, errPrecondition("dead", "entity %d is dead", id)
	}
	return e, nil
}

// npcNear resolves a target NPC of one of the wanted types within range
// of the player.
func (r *Runtime) npcNear(p *world.Entity, id world.EntityID, rng int, types ...world.EntityType) (*world.Entity, *Error) {
	e := r.entities[id]
	if e == nil {
		return nil, errValidation("no_such_entity", "entity %d", id)
	}
	ok := false
	for _, t := range types {
		if e.Type == t {
			ok = true
			break
		}
	}
	if !ok {
		return nil, errValidation("wrong_entity_type", "entity %d is %s", id, e.Type)
	}
	if !world.WithinRange(p, e, rng) {
		return nil, errPrecondition("out_of_range", "entity %d beyond %d tiles", id, rng)
	}
	return e, nil
}

// partyMembersHere returns the in-zone party members of a player,
// including the player. A solo player is a party of one.
func (r *Runtime) partyMembersHere(id world.EntityID) []*world.Entity {
	var ids []world.EntityID
	if r.deps.Roster != nil {
		ids = r.deps.Roster.Members(id)
	}
	if len(ids) == 0 {
		ids = []world.EntityID{id}
	}
	out := make([]*world.Entity, 0, len(ids))
	for _, mid := range ids {
		if e := r.entities[mid]; e != nil && e.Player != nil {
			out = append(out, e)
		}
	}
	return out
}
