package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/persist"
	"github.com/shardworld/server/internal/world"
	"github.com/shardworld/server/internal/zone"
)

var (
	ErrSessionExists = errors.New("wallet already has a live session")
	ErrNoSession     = errors.New("wallet has no live session")
)

// CreateCharacter persists a fresh level-1 character for the wallet at
// the default zone's spawn point.
func (m *Manager) CreateCharacter(ctx context.Context, wallet, name, raceID, classID string) (*persist.Character, error) {
	if err := ledger.RequireWallet(wallet); err != nil {
		return nil, err
	}
	if m.catalog.Stats.Race(raceID) == nil {
		return nil, fmt.Errorf("unknown race %q", raceID)
	}
	if m.catalog.Stats.Class(classID) == nil {
		return nil, fmt.Errorf("unknown class %q", classID)
	}
	name = persist.NormalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("empty character name")
	}
	if _, err := m.store.Load(ctx, wallet, name); err == nil {
		return nil, fmt.Errorf("character %q already exists", name)
	} else if !errors.Is(err, persist.ErrNotFound) {
		return nil, err
	}

	home := m.defaultZone()
	hx, hy := home.SpawnPoint()
	c := &persist.Character{
		Wallet: wallet, Name: name, RaceID: raceID, ClassID: classID,
		Level: 1, ZoneID: home.ID(), X: hx, Y: hy,
		HomeZone: home.ID(), HomeX: hx, HomeY: hy,
	}
	if err := m.store.Save(ctx, c); err != nil {
		return nil, err
	}
	m.log.Info("character created",
		zap.String("wallet", wallet),
		zap.String("name", name),
		zap.String("class", classID))
	return c, nil
}

// Login authenticates a wallet's character into the world: the
// character loads from the store, spawns into its last zone and a
// session is opened. One session per wallet.
func (m *Manager) Login(ctx context.Context, wallet, name string) (*Session, error) {
	if err := ledger.RequireWallet(wallet); err != nil {
		return nil, err
	}
	if m.Session(wallet) != nil {
		return nil, ErrSessionExists
	}
	c, err := m.store.Load(ctx, wallet, name)
	if err != nil {
		return nil, err
	}

	rt := m.zones[c.ZoneID]
	x, y := c.X, c.Y
	if rt == nil {
		// Dungeon instances do not survive restarts; fall back home.
		rt = m.zones[c.HomeZone]
		x, y = c.HomeX, c.HomeY
		if rt == nil {
			rt = m.defaultZone()
			x, y = rt.SpawnPoint()
		}
	}

	e := buildEntity(c, m.catalog)
	if err := rt.ExecFunc(ctx, func(z *zone.Runtime) error {
		return z.InsertPlayer(e, x, y)
	}); err != nil {
		return nil, err
	}

	s := &Session{
		Wallet:    wallet,
		Character: c.Name,
		ZoneID:    rt.ID(),
		EntityID:  e.ID,
		LoginAt:   time.Now(),
	}
	if !m.putSession(s) {
		// Lost the race to a concurrent login; undo the spawn.
		_ = rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			_, rerr := z.RemovePlayer(e.ID)
			return rerr
		})
		return nil, ErrSessionExists
	}
	m.log.Info("login",
		zap.String("wallet", wallet),
		zap.String("character", c.Name),
		zap.String("zone", rt.ID()))
	copied := *s
	return &copied, nil
}

// Logout saves the character, removes the entity and closes the session.
func (m *Manager) Logout(ctx context.Context, wallet string) error {
	s := m.dropSession(wallet)
	if s == nil {
		return ErrNoSession
	}
	m.parties.Leave(s.EntityID)

	rt := m.Zone(s.ZoneID)
	if rt == nil {
		return fmt.Errorf("zone %s gone", s.ZoneID)
	}
	var c *persist.Character
	err := rt.ExecFunc(ctx, func(z *zone.Runtime) error {
		e, rerr := z.RemovePlayer(s.EntityID)
		if rerr != nil {
			return rerr
		}
		c = snapshotCharacter(e, s.Character, z.ID())
		return nil
	})
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, c); err != nil {
		return err
	}
	m.log.Info("logout",
		zap.String("wallet", wallet),
		zap.String("character", s.Character))
	return nil
}

// buildEntity materializes a persisted character as a live entity.
func buildEntity(c *persist.Character, catalog *data.Catalog) *world.Entity {
	p := &world.PlayerState{
		Wallet:  c.Wallet,
		RaceID:  c.RaceID,
		ClassID: c.ClassID,
		Level:   c.Level,
		XP:      c.XP,
		Kills:   c.Kills,

		Base:      catalog.Stats.BaseStats(c.RaceID, c.ClassID, c.Level),
		Equipment: make(map[data.Slot]*world.EquippedItem),
		Cooldowns: make(map[string]int64),

		Professions:     append([]string(nil), c.Professions...),
		Learned:         append([]string(nil), c.Learned...),
		CompletedQuests: append([]string(nil), c.CompletedQuests...),

		AttackCooldown: 2,
		HomeZone:       c.HomeZone,
		HomeX:          c.HomeX,
		HomeY:          c.HomeY,
	}
	for _, q := range c.ActiveQuests {
		p.ActiveQuests = append(p.ActiveQuests, &world.QuestProgress{
			QuestID:  q.QuestID,
			Progress: q.Progress,
		})
	}
	for slot, rec := range c.Equipment {
		eq := &world.EquippedItem{
			TokenID:       rec.TokenID,
			Durability:    rec.Durability,
			MaxDurability: rec.MaxDurability,
			Broken:        rec.Broken,
		}
		for _, en := range rec.Enchantments {
			eq.Enchantments = append(eq.Enchantments, world.Enchantment{
				ID: en.ID, Stat: en.Stat, Bonus: en.Bonus,
			})
		}
		p.Equipment[data.Slot(slot)] = eq
	}

	e := &world.Entity{
		ID:     world.NextEntityID(),
		Type:   world.TypePlayer,
		Name:   c.Name,
		X:      c.X,
		Y:      c.Y,
		Player: p,
	}
	p.RecomputeEffective(catalog.Items)
	p.HP, p.Essence = c.HP, c.Essence
	if p.HP <= 0 || p.HP > p.MaxHP {
		p.HP = p.MaxHP
	}
	if p.Essence < 0 || p.Essence > p.MaxEssence {
		p.Essence = p.MaxEssence
	}
	p.Alive = true
	return e
}

// snapshotCharacter is the inverse of buildEntity. Must run on the
// entity's zone goroutine.
func snapshotCharacter(e *world.Entity, name, zoneID string) *persist.Character {
	p := e.Player
	c := &persist.Character{
		Wallet:  p.Wallet,
		Name:    name,
		RaceID:  p.RaceID,
		ClassID: p.ClassID,
		Level:   p.Level,
		XP:      p.XP,
		Kills:   p.Kills,
		HP:      p.HP,
		Essence: p.Essence,

		ZoneID:   zoneID,
		X:        e.X,
		Y:        e.Y,
		HomeZone: p.HomeZone,
		HomeX:    p.HomeX,
		HomeY:    p.HomeY,

		Professions:     append([]string(nil), p.Professions...),
		Learned:         append([]string(nil), p.Learned...),
		CompletedQuests: append([]string(nil), p.CompletedQuests...),
		Equipment:       make(map[string]persist.EquippedItemRecord),
	}
	for _, q := range p.ActiveQuests {
		c.ActiveQuests = append(c.ActiveQuests, persist.QuestRecord{
			QuestID:  q.QuestID,
			Progress: q.Progress,
		})
	}
	for slot, eq := range p.Equipment {
		if eq == nil {
			continue
		}
		rec := persist.EquippedItemRecord{
			TokenID:       eq.TokenID,
			Durability:    eq.Durability,
			MaxDurability: eq.MaxDurability,
			Broken:        eq.Broken,
		}
		for _, en := range eq.Enchantments {
			rec.Enchantments = append(rec.Enchantments, persist.EnchantmentRecord{
				ID: en.ID, Stat: en.Stat, Bonus: en.Bonus,
			})
		}
		c.Equipment[string(slot)] = rec
	}
	return c
}
