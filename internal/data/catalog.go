package data

import (
	"fmt"
	"path/filepath"
)

// Catalog bundles every static table the zone runtimes consume.
// Read-only after load; safe for concurrent use without locking.
type Catalog struct {
	Items      *ItemTable
	Recipes    *RecipeTable
	Loot       *LootTable
	Quests     *QuestTable
	Techniques *TechniqueTable
	Mobs       *MobTable
	Zones      *ZoneTable
	Stats      *StatTable
	Gates      *GateRankTable
}

// LoadCatalog loads every table from its conventional file under dir.
func LoadCatalog(dir string, growthRate float64, maxLevel int) (*Catalog, error) {
	items, err := LoadItemTable(filepath.Join(dir, "item_list.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	recipes, err := LoadRecipeTable(filepath.Join(dir, "recipe_list.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}
	loot, err := LoadLootTable(filepath.Join(dir, "loot_list.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load loot: %w", err)
	}
	quests, err := LoadQuestTable(filepath.Join(dir, "quest_list.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load quests: %w", err)
	}
	techniques, err := LoadTechniqueTable(filepath.Join(dir, "technique_list.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load techniques: %w", err)
	}
	mobs, err := LoadMobTable(filepath.Join(dir, "mob_list.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load mobs: %w", err)
	}
	zones, err := LoadZoneTable(filepath.Join(dir, "zone_list.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load zones: %w", err)
	}
	stats, err := LoadStatTable(filepath.Join(dir, "stat_list.yaml"), growthRate, maxLevel)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	gates, err := LoadGateRankTable(filepath.Join(dir, "gate_ranks.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load gate ranks: %w", err)
	}
	return &Catalog{
		Items:      items,
		Recipes:    recipes,
		Loot:       loot,
		Quests:     quests,
		Techniques: techniques,
		Mobs:       mobs,
		Zones:      zones,
		Stats:      stats,
		Gates:      gates,
	}, nil
}
