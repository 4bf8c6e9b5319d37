package data

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// Drop is a single possible drop from a mob.
// Chance is out of 1,000,000 (100% = 1000000), same scale the drop data
// was originally authored in.
type Drop struct {
	ItemID string `yaml:"item_id"`
	Min    int    `yaml:"min"`
	Max    int    `yaml:"max"`
	Chance int    `yaml:"chance"`
}

// MobLoot describes everything a mob template can yield on death.
type MobLoot struct {
	MobID       string `yaml:"mob_id"`
	AutoDrops   []Drop `yaml:"auto_drops"`
	SkinDrops   []Drop `yaml:"skin_drops"`
	CurrencyMin int64  `yaml:"currency_min"`
	CurrencyMax int64  `yaml:"currency_max"`
}

type lootListFile struct {
	Loot []MobLoot `yaml:"loot"`
}

// LootTable holds drop data indexed by mob template id.
type LootTable struct {
	loot map[string]*MobLoot
}

// LoadLootTable loads mob loot data from a YAML file.
func LoadLootTable(path string) (*LootTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loot list: %w", err)
	}
	var f lootListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse loot list: %w", err)
	}
	return NewLootTable(f.Loot), nil
}

// NewLootTable builds a table from in-memory entries.
func NewLootTable(entries []MobLoot) *LootTable {
	t := &LootTable{loot: make(map[string]*MobLoot, len(entries))}
	for i := range entries {
		t.loot[entries[i].MobID] = &entries[i]
	}
	return t
}

// Get returns the loot entry for a mob template, or nil if none defined.
func (t *LootTable) Get(mobID string) *MobLoot {
	return t.loot[mobID]
}

// Count returns the number of mobs with loot entries.
func (t *LootTable) Count() int {
	return len(t.loot)
}

// RolledDrop is one resolved drop from a loot roll.
type RolledDrop struct {
	ItemID string
	Qty    int
}

// RollAuto rolls the auto-drop list for a mob. dropRate scales each
// drop's chance; rng keeps rolls deterministic in tests.
func (t *LootTable) RollAuto(mobID string, dropRate float64, rng *rand.Rand) []RolledDrop {
	entry := t.loot[mobID]
	if entry == nil {
		return nil
	}
	return rollDrops(entry.AutoDrops, dropRate, rng)
}

// RollSkin rolls the skinning drop list for a mob.
func (t *LootTable) RollSkin(mobID string, dropRate float64, rng *rand.Rand) []RolledDrop {
	entry := t.loot[mobID]
	if entry == nil {
		return nil
	}
	return rollDrops(entry.SkinDrops, dropRate, rng)
}

// RollCurrency rolls the currency drop for a mob in [CurrencyMin, CurrencyMax].
func (t *LootTable) RollCurrency(mobID string, currencyRate float64, rng *rand.Rand) int64 {
	entry := t.loot[mobID]
	if entry == nil || entry.CurrencyMax <= 0 {
		return 0
	}
	span := entry.CurrencyMax - entry.CurrencyMin
	amount := entry.CurrencyMin
	if span > 0 {
		amount += rng.Int63n(span + 1)
	}
	return int64(float64(amount) * currencyRate)
}

func rollDrops(drops []Drop, rate float64, rng *rand.Rand) []RolledDrop {
	var out []RolledDrop
	for _, d := range drops {
		chance := int(float64(d.Chance) * rate)
		if chance > 1_000_000 {
			chance = 1_000_000
		}
		if rng.Intn(1_000_000) >= chance {
			continue
		}
		qty := d.Min
		if d.Max > d.Min {
			qty += rng.Intn(d.Max - d.Min + 1)
		}
		if qty <= 0 {
			qty = 1
		}
		out = append(out, RolledDrop{ItemID: d.ItemID, Qty: qty})
	}
	return out
}
