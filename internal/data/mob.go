package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MobTemplate holds static data for a mob type.
type MobTemplate struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Level          int    `yaml:"level"`
	HP             int    `yaml:"hp"`
	Str            int    `yaml:"str"`
	Def            int    `yaml:"def"`
	XP             int64  `yaml:"xp"` // xp reward on kill
	Boss           bool   `yaml:"boss,omitempty"`
	Aggressive     bool   `yaml:"aggressive,omitempty"`
	DetectRadius   int    `yaml:"detect_radius"`
	StrikeRadius   int    `yaml:"strike_radius"`
	AttackCooldown int64  `yaml:"attack_cooldown_ticks"`
	RespawnTicks   int64  `yaml:"respawn_ticks,omitempty"` // 0 = config default
}

type mobListFile struct {
	Mobs []MobTemplate `yaml:"mobs"`
}

// MobTable holds all mob templates indexed by template id.
type MobTable struct {
	mobs map[string]*MobTemplate
}

// LoadMobTable loads mob templates from a YAML file.
func LoadMobTable(path string) (*MobTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mob list: %w", err)
	}
	var f mobListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse mob list: %w", err)
	}
	return NewMobTable(f.Mobs), nil
}

// NewMobTable builds a table from in-memory templates.
func NewMobTable(mobs []MobTemplate) *MobTable {
	t := &MobTable{mobs: make(map[string]*MobTemplate, len(mobs))}
	for i := range mobs {
		t.mobs[mobs[i].ID] = &mobs[i]
	}
	return t
}

// Get returns a mob template by id, or nil if not found.
func (t *MobTable) Get(id string) *MobTemplate {
	return t.mobs[id]
}

// Count returns the number of loaded templates.
func (t *MobTable) Count() int {
	return len(t.mobs)
}
