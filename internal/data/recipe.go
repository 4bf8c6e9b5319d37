package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Professions recognized by the recipe registry and gathering checks.
const (
	ProfessionMining     = "mining"
	ProfessionHerbalism  = "herbalism"
	ProfessionSmithing   = "smithing"
	ProfessionAlchemy    = "alchemy"
	ProfessionEnchanting = "enchanting"
)

// Recipe turns burned input tokens into a minted output token at a station.
// Upgrade recipes consume an equipable input and produce a higher-tier
// version of it; the upgraded output keeps the input's slot assignment.
type Recipe struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name"`
	Station    string    `yaml:"station"` // forge or alchemy-lab
	Profession string    `yaml:"profession"`
	MinLevel   int       `yaml:"min_level"`
	Inputs     []ItemQty `yaml:"inputs"`
	Output     ItemQty   `yaml:"output"`
	UpgradeOf  string    `yaml:"upgrade_of,omitempty"` // input item id being upgraded
}

type recipeListFile struct {
	Recipes []Recipe `yaml:"recipes"`
}

// RecipeTable holds all recipes indexed by id.
type RecipeTable struct {
	recipes map[string]*Recipe
}

// LoadRecipeTable loads recipes from a YAML file.
func LoadRecipeTable(path string) (*RecipeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe list: %w", err)
	}
	var f recipeListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse recipe list: %w", err)
	}
	return NewRecipeTable(f.Recipes), nil
}

// NewRecipeTable builds a table from in-memory recipes.
func NewRecipeTable(recipes []Recipe) *RecipeTable {
	t := &RecipeTable{recipes: make(map[string]*Recipe, len(recipes))}
	for i := range recipes {
		t.recipes[recipes[i].ID] = &recipes[i]
	}
	return t
}

// Get returns a recipe by id, or nil if not found.
func (t *RecipeTable) Get(id string) *Recipe {
	return t.recipes[id]
}

// Count returns the number of loaded recipes.
func (t *RecipeTable) Count() int {
	return len(t.recipes)
}

// IsUpgrade reports whether the recipe upgrades an existing item.
func (r *Recipe) IsUpgrade() bool {
	return r.UpgradeOf != ""
}
