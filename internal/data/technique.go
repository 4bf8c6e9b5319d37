package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TargetKind is the technique targeting mode.
type TargetKind string

const (
	TargetSelf   TargetKind = "self"
	TargetSingle TargetKind = "single"
	TargetAoE    TargetKind = "aoe"
)

// EffectSpec describes a timed effect a technique applies.
type EffectSpec struct {
	Kind         string `yaml:"kind"` // buff, debuff, dot, regen
	DamagePct    int    `yaml:"damage_pct,omitempty"` // +/- percent on damage dealt
	StatDelta    Stats  `yaml:"stat_delta,omitempty"`
	PerTick      int    `yaml:"per_tick,omitempty"` // dot damage / regen amount per tick
	DurationTicks int64 `yaml:"duration_ticks"`
}

// Technique is a named active ability.
type Technique struct {
	ID            string      `yaml:"id"`
	Name          string      `yaml:"name"`
	ClassID       string      `yaml:"class_id,omitempty"` // empty = any class
	MinLevel      int         `yaml:"min_level"`
	EssenceCost   int         `yaml:"essence_cost"`
	CooldownTicks int64       `yaml:"cooldown_ticks"`
	Target        TargetKind  `yaml:"target"`
	Range         int         `yaml:"range"`
	Radius        int         `yaml:"radius,omitempty"` // aoe only
	Multiplier    float64     `yaml:"multiplier"`       // added to base damage
	Damaging      bool        `yaml:"damaging"`
	Effect        *EffectSpec `yaml:"effect,omitempty"`
}

type techniqueListFile struct {
	Techniques []Technique `yaml:"techniques"`
}

// TechniqueTable holds all techniques indexed by id.
type TechniqueTable struct {
	techniques map[string]*Technique
}

// LoadTechniqueTable loads techniques from a YAML file.
func LoadTechniqueTable(path string) (*TechniqueTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read technique list: %w", err)
	}
	var f techniqueListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse technique list: %w", err)
	}
	return NewTechniqueTable(f.Techniques), nil
}

// NewTechniqueTable builds a table from in-memory definitions.
func NewTechniqueTable(techniques []Technique) *TechniqueTable {
	t := &TechniqueTable{techniques: make(map[string]*Technique, len(techniques))}
	for i := range techniques {
		t.techniques[techniques[i].ID] = &techniques[i]
	}
	return t
}

// Get returns a technique by id, or nil if not found.
func (t *TechniqueTable) Get(id string) *Technique {
	return t.techniques[id]
}

// Count returns the number of loaded techniques.
func (t *TechniqueTable) Count() int {
	return len(t.techniques)
}
