package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ItemCategory classifies catalog entries.
type ItemCategory string

const (
	CategoryWeapon     ItemCategory = "weapon"
	CategoryArmor      ItemCategory = "armor"
	CategoryTool       ItemCategory = "tool"
	CategoryMaterial   ItemCategory = "material"
	CategoryConsumable ItemCategory = "consumable"
	CategoryCatalyst   ItemCategory = "catalyst"
	CategoryKey        ItemCategory = "key"
	CategoryCurrency   ItemCategory = "currency"
)

// Slot is an equipment slot name.
type Slot string

const (
	SlotWeapon    Slot = "weapon"
	SlotChest     Slot = "chest"
	SlotLegs      Slot = "legs"
	SlotBoots     Slot = "boots"
	SlotHelm      Slot = "helm"
	SlotShoulders Slot = "shoulders"
	SlotGloves    Slot = "gloves"
	SlotBelt      Slot = "belt"
	SlotRing      Slot = "ring"
	SlotAmulet    Slot = "amulet"
)

// ValidSlot reports whether s names a real equipment slot.
func ValidSlot(s Slot) bool {
	switch s {
	case SlotWeapon, SlotChest, SlotLegs, SlotBoots, SlotHelm,
		SlotShoulders, SlotGloves, SlotBelt, SlotRing, SlotAmulet:
		return true
	}
	return false
}

// EnchantSpec is the payload a catalyst item applies to an equipped item.
type EnchantSpec struct {
	ID    string `yaml:"id"`
	Stat  string `yaml:"stat"` // str, def, hp, agi, int, mp, faith, luck
	Bonus int    `yaml:"bonus"`
}

// ItemTemplate holds static metadata for one token id.
type ItemTemplate struct {
	ID            string       `yaml:"id"` // token id on the ledger
	Name          string       `yaml:"name"`
	Category      ItemCategory `yaml:"category"`
	Slot          Slot         `yaml:"slot,omitempty"`
	Tier          int          `yaml:"tier,omitempty"` // tool/ore tier gate
	WeaponCoef    float64      `yaml:"weapon_coef,omitempty"`
	Bonus         Stats        `yaml:"bonus,omitempty"` // equipment stat bonuses
	MaxDurability int          `yaml:"max_durability,omitempty"`
	BuyPrice      int64        `yaml:"buy_price,omitempty"`  // merchant sells at this
	SellPrice     int64        `yaml:"sell_price,omitempty"` // merchant buys at this
	Profession    string       `yaml:"profession,omitempty"` // tools: mining / herbalism
	Enchant       *EnchantSpec `yaml:"enchant,omitempty"`    // catalysts only
	GateRank      string       `yaml:"gate_rank,omitempty"`  // key items only
}

type itemListFile struct {
	Items []ItemTemplate `yaml:"items"`
}

// ItemTable holds all item templates indexed by token id.
type ItemTable struct {
	items map[string]*ItemTemplate
}

// LoadItemTable loads item templates from a YAML file.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item list: %w", err)
	}
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse item list: %w", err)
	}
	return NewItemTable(f.Items), nil
}

// NewItemTable builds a table from in-memory templates.
func NewItemTable(items []ItemTemplate) *ItemTable {
	t := &ItemTable{items: make(map[string]*ItemTemplate, len(items))}
	for i := range items {
		t.items[items[i].ID] = &items[i]
	}
	return t
}

// Get returns an item template by token id, or nil if not found.
func (t *ItemTable) Get(id string) *ItemTemplate {
	return t.items[id]
}

// Count returns the number of loaded templates.
func (t *ItemTable) Count() int {
	return len(t.items)
}

// KeyForRank returns the key item required to open a gate of the given rank.
func (t *ItemTable) KeyForRank(rank string) *ItemTemplate {
	for _, it := range t.items {
		if it.Category == CategoryKey && it.GateRank == rank {
			return it
		}
	}
	return nil
}
