package world

import (
	"sync/atomic"

	"github.com/shardworld/server/internal/data"
)

// entityIDCounter generates world-unique entity ids. Starts high so ids
// are visibly distinct from catalog row ids in logs.
var entityIDCounter atomic.Int64

func init() {
	entityIDCounter.Store(1_000_000)
}

// EntityID is a world-unique identifier assigned at spawn.
type EntityID int64

// NextEntityID returns a fresh world-unique entity id.
func NextEntityID() EntityID {
	return EntityID(entityIDCounter.Add(1))
}

// EntityType tags the role variant an entity carries.
type EntityType string

const (
	TypePlayer            EntityType = "player"
	TypeMob               EntityType = "mob"
	TypeBoss              EntityType = "boss"
	TypeMerchant          EntityType = "merchant"
	TypeTrainer           EntityType = "trainer"
	TypeProfessionTrainer EntityType = "profession-trainer"
	TypeQuestGiver        EntityType = "quest-giver"
	TypeAuctioneer        EntityType = "auctioneer"
	TypeOreNode           EntityType = "ore-node"
	TypeFlowerNode        EntityType = "flower-node"
	TypeForge             EntityType = "forge"
	TypeAlchemyLab        EntityType = "alchemy-lab"
	TypeEnchantingAltar   EntityType = "enchanting-altar"
	TypeDungeonGate       EntityType = "dungeon-gate"
	TypePortalMarker      EntityType = "portal-marker"
)

// Entity is the sole in-zone subject of simulation: a common header plus
// one role record. Exactly one of the role pointers is non-nil for role
// types; pure POI types (forge, alchemy-lab, ...) carry none.
type Entity struct {
	ID   EntityID
	Type EntityType
	Name string
	X    int
	Y    int

	Player   *PlayerState
	Mob      *MobState
	Node     *NodeState
	Gate     *GateState
	Portal   *PortalState
	Merchant *MerchantState
	Trainer  *TrainerState
}

// Vitals is the HP/essence block shared by combat entities.
type Vitals struct {
	HP         int
	MaxHP      int
	Essence    int
	MaxEssence int
	Alive      bool
}

// Vitals returns the entity's vitals, or nil for non-combat entities.
func (e *Entity) Vitals() *Vitals {
	switch {
	case e.Player != nil:
		return &e.Player.Vitals
	case e.Mob != nil:
		return &e.Mob.Vitals
	}
	return nil
}

// Wallet returns the owning wallet address, or "" for server-owned entities.
func (e *Entity) Wallet() string {
	if e.Player != nil {
		return e.Player.Wallet
	}
	return ""
}

// IsCombatant reports whether the entity participates in combat.
func (e *Entity) IsCombatant() bool {
	return e.Player != nil || e.Mob != nil
}

// EffectList returns the entity's timed-effect slice, or nil for
// non-combat entities.
func (e *Entity) EffectList() *[]*Effect {
	switch {
	case e.Player != nil:
		return &e.Player.Effects
	case e.Mob != nil:
		return &e.Mob.Effects
	}
	return nil
}

// EquippedItem is one piece of equipment tracked on the player entity.
// The token itself lives on the external ledger; durability, quality and
// enchantments are server-side state.
type EquippedItem struct {
	TokenID       string
	Durability    int
	MaxDurability int
	Broken        bool
	Quality       string
	RolledStats   *data.Stats
	Enchantments  []Enchantment
}

// Enchantment is one applied enchantment record.
type Enchantment struct {
	ID    string
	Stat  string
	Bonus int
}

// Effect is a timed buff/debuff/dot/regen on a combat entity.
type Effect struct {
	Source        string // technique id that applied it
	Kind          string // buff, debuff, dot, regen
	DamagePct     int    // +/- percent applied to outgoing damage
	StatDelta     data.Stats
	PerTick       int // dot damage or regen amount per tick
	ExpiresAtTick int64
}

// QuestProgress tracks one active quest on a player.
type QuestProgress struct {
	QuestID       string
	Progress      int
	StartedAtTick int64
}

// PlayerState is the role record for player entities.
type PlayerState struct {
	Wallet  string
	RaceID  string
	ClassID string
	Level   int
	XP      int64
	Kills   int

	Vitals
	Base      data.Stats
	Effective data.Stats

	Equipment   map[data.Slot]*EquippedItem
	Professions []string
	Learned     []string // technique ids
	Effects     []*Effect

	ActiveQuests    []*QuestProgress
	CompletedQuests []string

	// Combat bookkeeping, all in zone ticks.
	AttackTarget   EntityID
	AttackReadyAt  int64
	AttackCooldown int64
	Cooldowns      map[string]int64 // technique id → ready-at tick
	RespawnAtTick  int64            // when dead, tick to respawn at

	// Where death and dungeon exits send the player back to.
	HomeZone string
	HomeX    int
	HomeY    int
}

// MobState is the role record for mob and boss entities.
type MobState struct {
	TemplateID string
	Level      int

	Vitals
	Str int
	Def int
	XP  int64 // reward on kill

	Effects []*Effect

	Aggressive     bool
	DetectRadius   int
	StrikeRadius   int
	AttackCooldown int64
	AttackReadyAt  int64
	AggroTarget    EntityID

	SpawnX        int
	SpawnY        int
	RespawnTicks  int64
	RespawnAtTick int64 // when dead, tick to respawn at
}

// NodeState is the role record for ore and flower nodes.
type NodeState struct {
	Resource       string
	ItemID         string // token minted per gather
	Tier           int
	Charges        int
	MaxCharges     int
	DepletedAtTick int64 // -1 while not depleted
	RespawnTicks   int64
}

// Depleted reports whether the node has no charges left.
func (n *NodeState) Depleted() bool {
	return n.Charges <= 0
}

// GateState is the role record for dungeon gates.
type GateState struct {
	Rank      string
	Danger    bool
	Opened    bool
	ExpiresAt int64 // unix seconds while opened; 0 otherwise
}

// PortalState is the role record for portal markers.
type PortalState struct {
	DestZone   string
	DestPortal string
}

// MerchantState is the role record for merchants: the stock they sell.
type MerchantState struct {
	Sells []string // item ids
}

// InStock reports whether the merchant sells the item.
func (m *MerchantState) InStock(itemID string) bool {
	for _, id := range m.Sells {
		if id == itemID {
			return true
		}
	}
	return false
}

// TrainerState is the role record for trainers: techniques or professions.
type TrainerState struct {
	Teaches []string
}

// CanTeach reports whether the trainer teaches the technique or profession.
func (t *TrainerState) CanTeach(what string) bool {
	for _, id := range t.Teaches {
		if id == what {
			return true
		}
	}
	return false
}

// HasProfession reports whether the player learned the profession.
func (p *PlayerState) HasProfession(name string) bool {
	for _, pr := range p.Professions {
		if pr == name {
			return true
		}
	}
	return false
}

// HasLearned reports whether the player knows the technique.
func (p *PlayerState) HasLearned(techniqueID string) bool {
	for _, id := range p.Learned {
		if id == techniqueID {
			return true
		}
	}
	return false
}

// HasCompleted reports whether the quest id is in the completed set.
func (p *PlayerState) HasCompleted(questID string) bool {
	for _, id := range p.CompletedQuests {
		if id == questID {
			return true
		}
	}
	return false
}

// ActiveQuest returns the active progress record for a quest, or nil.
func (p *PlayerState) ActiveQuest(questID string) *QuestProgress {
	for _, q := range p.ActiveQuests {
		if q.QuestID == questID {
			return q
		}
	}
	return nil
}

// RecomputeEffective rebuilds Effective from base stats, unbroken
// equipment bonuses (including rolled stats and enchantments) and active
// effect deltas, then re-derives MaxHP/MaxEssence and clamps vitals.
func (p *PlayerState) RecomputeEffective(items interface {
	Get(id string) *data.ItemTemplate
}) {
	eff := p.Base
	for _, eq := range p.Equipment {
		if eq == nil || eq.Broken {
			continue
		}
		if tpl := items.Get(eq.TokenID); tpl != nil {
			eff = eff.Add(tpl.Bonus)
		}
		if eq.RolledStats != nil {
			eff = eff.Add(*eq.RolledStats)
		}
		for _, en := range eq.Enchantments {
			eff = eff.Add(statDelta(en.Stat, en.Bonus))
		}
	}
	for _, fx := range p.Effects {
		eff = eff.Add(fx.StatDelta)
	}
	p.Effective = eff
	p.MaxHP = eff.HP
	p.MaxEssence = eff.MP
	if p.HP > p.MaxHP {
		p.HP = p.MaxHP
	}
	if p.Essence > p.MaxEssence {
		p.Essence = p.MaxEssence
	}
}

func statDelta(stat string, bonus int) data.Stats {
	var s data.Stats
	switch stat {
	case "str":
		s.Str = bonus
	case "def":
		s.Def = bonus
	case "hp":
		s.HP = bonus
	case "agi":
		s.Agi = bonus
	case "int":
		s.Int = bonus
	case "mp":
		s.MP = bonus
	case "faith":
		s.Faith = bonus
	case "luck":
		s.Luck = bonus
	}
	return s
}

// Chebyshev returns the Chebyshev distance between two points. Range and
// proximity checks all use this metric.
func Chebyshev(x1, y1, x2, y2 int) int {
	dx := x1 - x2
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y2
	if dy < 0 {
		dy = -dy
	}
	if dy > dx {
		return dy
	}
	return dx
}

// WithinRange reports whether two entities are within r tiles of each other.
func WithinRange(a, b *Entity, r int) bool {
	return Chebyshev(a.X, a.Y, b.X, b.Y) <= r
}
