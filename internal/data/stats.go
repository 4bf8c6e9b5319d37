package data

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Stats is the eight-stat block shared by races, classes, items and entities.
type Stats struct {
	Str   int `yaml:"str"`
	Def   int `yaml:"def"`
	HP    int `yaml:"hp"`
	Agi   int `yaml:"agi"`
	Int   int `yaml:"int"`
	MP    int `yaml:"mp"`
	Faith int `yaml:"faith"`
	Luck  int `yaml:"luck"`
}

// Add returns s with o added field-wise.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Str:   s.Str + o.Str,
		Def:   s.Def + o.Def,
		HP:    s.HP + o.HP,
		Agi:   s.Agi + o.Agi,
		Int:   s.Int + o.Int,
		MP:    s.MP + o.MP,
		Faith: s.Faith + o.Faith,
		Luck:  s.Luck + o.Luck,
	}
}

// RaceModifiers are per-stat multipliers applied on top of class bases.
type RaceModifiers struct {
	Str   float64 `yaml:"str"`
	Def   float64 `yaml:"def"`
	HP    float64 `yaml:"hp"`
	Agi   float64 `yaml:"agi"`
	Int   float64 `yaml:"int"`
	MP    float64 `yaml:"mp"`
	Faith float64 `yaml:"faith"`
	Luck  float64 `yaml:"luck"`
}

// Race holds static race data.
type Race struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name"`
	Modifiers RaceModifiers `yaml:"modifiers"`
}

// Class holds static class data: base stats at level 1.
type Class struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Base Stats  `yaml:"base"`
}

type statFile struct {
	Races   []Race  `yaml:"races"`
	Classes []Class `yaml:"classes"`
}

// StatTable resolves race x class x level into a stat block.
type StatTable struct {
	races      map[string]*Race
	classes    map[string]*Class
	growthRate float64
	maxLevel   int
}

// LoadStatTable loads races and classes from a YAML file.
func LoadStatTable(path string, growthRate float64, maxLevel int) (*StatTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stat table: %w", err)
	}
	var f statFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse stat table: %w", err)
	}
	t := &StatTable{
		races:      make(map[string]*Race, len(f.Races)),
		classes:    make(map[string]*Class, len(f.Classes)),
		growthRate: growthRate,
		maxLevel:   maxLevel,
	}
	for i := range f.Races {
		t.races[f.Races[i].ID] = &f.Races[i]
	}
	for i := range f.Classes {
		t.classes[f.Classes[i].ID] = &f.Classes[i]
	}
	return t, nil
}

// NewStatTable builds a table from in-memory definitions (tests, dungeons).
func NewStatTable(races []Race, classes []Class, growthRate float64, maxLevel int) *StatTable {
	t := &StatTable{
		races:      make(map[string]*Race, len(races)),
		classes:    make(map[string]*Class, len(classes)),
		growthRate: growthRate,
		maxLevel:   maxLevel,
	}
	for i := range races {
		t.races[races[i].ID] = &races[i]
	}
	for i := range classes {
		t.classes[classes[i].ID] = &classes[i]
	}
	return t
}

func (t *StatTable) Race(id string) *Race   { return t.races[id] }
func (t *StatTable) Class(id string) *Class { return t.classes[id] }
func (t *StatTable) MaxLevel() int          { return t.maxLevel }

// BaseStats computes the base stat block for a race/class at a level:
// stat = round(classBase * raceModifier * (1 + growthRate*(level-1))).
// Unknown race or class IDs fall back to neutral modifiers / zero bases.
func (t *StatTable) BaseStats(raceID, classID string, level int) Stats {
	var base Stats
	if c := t.classes[classID]; c != nil {
		base = c.Base
	}
	mod := RaceModifiers{Str: 1, Def: 1, HP: 1, Agi: 1, Int: 1, MP: 1, Faith: 1, Luck: 1}
	if r := t.races[raceID]; r != nil {
		mod = r.Modifiers
	}
	scale := 1 + t.growthRate*float64(level-1)
	rs := func(b int, m float64) int {
		return int(math.Round(float64(b) * m * scale))
	}
	return Stats{
		Str:   rs(base.Str, mod.Str),
		Def:   rs(base.Def, mod.Def),
		HP:    rs(base.HP, mod.HP),
		Agi:   rs(base.Agi, mod.Agi),
		Int:   rs(base.Int, mod.Int),
		MP:    rs(base.MP, mod.MP),
		Faith: rs(base.Faith, mod.Faith),
		Luck:  rs(base.Luck, mod.Luck),
	}
}

// XPForLevel returns the cumulative XP required to reach the given level.
// Level 1 requires 0. The curve is quadratic: 50 * (n-1) * n.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level)
	return 50 * (n - 1) * n
}
