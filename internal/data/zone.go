package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MobSpawn places count mobs of a template around a point.
type MobSpawn struct {
	MobID   string `yaml:"mob_id"`
	X       int    `yaml:"x"`
	Y       int    `yaml:"y"`
	Count   int    `yaml:"count"`
	RandomX int    `yaml:"randomx,omitempty"`
	RandomY int    `yaml:"randomy,omitempty"`
}

// NpcDef places a scripted NPC (merchant, trainer, quest giver, ...).
type NpcDef struct {
	Name  string   `yaml:"name"`
	Type  string   `yaml:"type"` // merchant, trainer, profession-trainer, quest-giver, auctioneer
	X     int      `yaml:"x"`
	Y     int      `yaml:"y"`
	Sells []string `yaml:"sells,omitempty"`  // merchant stock (item ids)
	Teaches []string `yaml:"teaches,omitempty"` // trainer technique ids / profession names
}

// NodeDef places a resource node.
type NodeDef struct {
	Kind         string `yaml:"kind"` // ore-node or flower-node
	Resource     string `yaml:"resource"`
	ItemID       string `yaml:"item_id"` // token minted on gather
	Tier         int    `yaml:"tier"`
	X            int    `yaml:"x"`
	Y            int    `yaml:"y"`
	Charges      int    `yaml:"charges"`
	RespawnTicks int64  `yaml:"respawn_ticks,omitempty"` // 0 = config default
}

// StationDef places a crafting station (forge, alchemy-lab, enchanting-altar).
type StationDef struct {
	Type string `yaml:"type"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
}

// PortalDef places a portal marker with its destination.
type PortalDef struct {
	Name     string `yaml:"name"`
	X        int    `yaml:"x"`
	Y        int    `yaml:"y"`
	DestZone string `yaml:"dest_zone"`
	DestPortal string `yaml:"dest_portal"`
}

// GateDef places a dungeon gate.
type GateDef struct {
	Name   string `yaml:"name"`
	Rank   string `yaml:"rank"` // E, D, C, B, A, S
	Danger bool   `yaml:"danger,omitempty"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
}

// ZoneDef is the static definition of one zone.
type ZoneDef struct {
	ID       string       `yaml:"id"`
	Name     string       `yaml:"name"`
	Width    int          `yaml:"width"`
	Height   int          `yaml:"height"`
	MinLevel int          `yaml:"min_level"`
	Seed     int64        `yaml:"seed"` // terrain generation seed
	SpawnX   int          `yaml:"spawn_x"`
	SpawnY   int          `yaml:"spawn_y"`
	Mobs     []MobSpawn   `yaml:"mobs,omitempty"`
	Npcs     []NpcDef     `yaml:"npcs,omitempty"`
	Nodes    []NodeDef    `yaml:"nodes,omitempty"`
	Stations []StationDef `yaml:"stations,omitempty"`
	Portals  []PortalDef  `yaml:"portals,omitempty"`
	Gates    []GateDef    `yaml:"gates,omitempty"`
}

type zoneListFile struct {
	Zones []ZoneDef `yaml:"zones"`
}

// ZoneTable holds all zone definitions indexed by zone id.
type ZoneTable struct {
	zones map[string]*ZoneDef
	order []string
}

// LoadZoneTable loads zone definitions from a YAML file.
func LoadZoneTable(path string) (*ZoneTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone list: %w", err)
	}
	var f zoneListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse zone list: %w", err)
	}
	return NewZoneTable(f.Zones)
}

// NewZoneTable builds a validated table from in-memory definitions.
// Portal destinations must reference defined zones.
func NewZoneTable(zones []ZoneDef) (*ZoneTable, error) {
	t := &ZoneTable{zones: make(map[string]*ZoneDef, len(zones))}
	for i := range zones {
		z := &zones[i]
		if _, dup := t.zones[z.ID]; dup {
			return nil, fmt.Errorf("duplicate zone id %q", z.ID)
		}
		t.zones[z.ID] = z
		t.order = append(t.order, z.ID)
	}
	for _, z := range t.zones {
		for _, p := range z.Portals {
			dest, ok := t.zones[p.DestZone]
			if !ok {
				return nil, fmt.Errorf("zone %q portal %q: unknown destination zone %q", z.ID, p.Name, p.DestZone)
			}
			if dest.Portal(p.DestPortal) == nil {
				return nil, fmt.Errorf("zone %q portal %q: destination portal %q not in zone %q", z.ID, p.Name, p.DestPortal, p.DestZone)
			}
		}
	}
	return t, nil
}

// Get returns a zone definition by id, or nil if not found.
func (t *ZoneTable) Get(id string) *ZoneDef {
	return t.zones[id]
}

// IDs returns zone ids in definition order.
func (t *ZoneTable) IDs() []string {
	return t.order
}

// Count returns the number of defined zones.
func (t *ZoneTable) Count() int {
	return len(t.zones)
}

// Portal returns the named portal in this zone, or nil.
func (z *ZoneDef) Portal(name string) *PortalDef {
	for i := range z.Portals {
		if z.Portals[i].Name == name {
			return &z.Portals[i]
		}
	}
	return nil
}
