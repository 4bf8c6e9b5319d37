package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GateRank holds the scaling parameters for one dungeon gate rank.
type GateRank struct {
	Rank         string   `yaml:"rank"` // E, D, C, B, A, S
	MinLevel     int      `yaml:"min_level"`
	KeyItemID    string   `yaml:"key_item_id"`
	MobsMin      int      `yaml:"mobs_min"`
	MobsMax      int      `yaml:"mobs_max"`
	BossCount    int      `yaml:"boss_count"`
	MobLevel     int      `yaml:"mob_level"`
	HPScale      float64  `yaml:"hp_scale"`
	XPScale      float64  `yaml:"xp_scale"`
	DangerHPMult float64  `yaml:"danger_hp_mult"`
	DangerXPMult float64  `yaml:"danger_xp_mult"`
	MobPool      []string `yaml:"mob_pool"`  // mob template ids to draw from
	BossPool     []string `yaml:"boss_pool"` // boss template ids
	Width        int      `yaml:"width"`
	Height       int      `yaml:"height"`
	SpawnX       int      `yaml:"spawn_x"`
	SpawnY       int      `yaml:"spawn_y"`
}

type gateRankFile struct {
	Ranks []GateRank `yaml:"ranks"`
}

// GateRankTable holds dungeon scaling data indexed by rank letter.
type GateRankTable struct {
	ranks map[string]*GateRank
}

// LoadGateRankTable loads gate rank scaling from a YAML file.
func LoadGateRankTable(path string) (*GateRankTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gate ranks: %w", err)
	}
	var f gateRankFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse gate ranks: %w", err)
	}
	return NewGateRankTable(f.Ranks), nil
}

// NewGateRankTable builds a table from in-memory rank definitions.
func NewGateRankTable(ranks []GateRank) *GateRankTable {
	t := &GateRankTable{ranks: make(map[string]*GateRank, len(ranks))}
	for i := range ranks {
		t.ranks[ranks[i].Rank] = &ranks[i]
	}
	return t
}

// Get returns the scaling for a rank, or nil if not defined.
func (t *GateRankTable) Get(rank string) *GateRank {
	return t.ranks[rank]
}

// Count returns the number of defined ranks.
func (t *GateRankTable) Count() int {
	return len(t.ranks)
}
