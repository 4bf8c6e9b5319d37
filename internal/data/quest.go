package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// QuestType distinguishes kill-count quests from talk quests.
type QuestType string

const (
	QuestKill QuestType = "kill"
	QuestTalk QuestType = "talk"
)

// ItemQty is an item id with a quantity (quest rewards, recipe inputs).
type ItemQty struct {
	ItemID string `yaml:"item_id"`
	Qty    int    `yaml:"qty"`
}

// Quest is one static quest definition. Each quest has zero or one
// prerequisite, forming chains; the full set is a DAG.
type Quest struct {
	ID             string    `yaml:"id"`
	Name           string    `yaml:"name"`
	Type           QuestType `yaml:"type"`
	OfferNpc       string    `yaml:"offer_npc"`   // NPC name that offers the quest
	TurnInNpc      string    `yaml:"turn_in_npc"` // NPC name for turn-in
	TargetMobName  string    `yaml:"target_mob,omitempty"` // kill quests
	TargetNpcName  string    `yaml:"target_npc,omitempty"` // talk quests
	Count          int       `yaml:"count"`
	Prerequisite   string    `yaml:"prerequisite,omitempty"`
	RewardXP       int64     `yaml:"reward_xp"`
	RewardCurrency int64     `yaml:"reward_currency"`
	RewardItems    []ItemQty `yaml:"reward_items,omitempty"`
}

type questListFile struct {
	Quests []Quest `yaml:"quests"`
}

// QuestTable holds all quest definitions indexed by id.
type QuestTable struct {
	quests  map[string]*Quest
	byOffer map[string][]*Quest // offer NPC name → quests
}

// LoadQuestTable loads quest definitions from a YAML file and validates
// the prerequisite chains.
func LoadQuestTable(path string) (*QuestTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quest list: %w", err)
	}
	var f questListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse quest list: %w", err)
	}
	return NewQuestTable(f.Quests)
}

// NewQuestTable builds a validated table from in-memory definitions.
func NewQuestTable(quests []Quest) (*QuestTable, error) {
	t := &QuestTable{
		quests:  make(map[string]*Quest, len(quests)),
		byOffer: make(map[string][]*Quest),
	}
	for i := range quests {
		q := &quests[i]
		if q.Count <= 0 {
			q.Count = 1
		}
		if _, dup := t.quests[q.ID]; dup {
			return nil, fmt.Errorf("duplicate quest id %q", q.ID)
		}
		t.quests[q.ID] = q
		t.byOffer[q.OfferNpc] = append(t.byOffer[q.OfferNpc], q)
	}
	// Prerequisites must exist and must not form a cycle.
	for _, q := range t.quests {
		if q.Prerequisite == "" {
			continue
		}
		if _, ok := t.quests[q.Prerequisite]; !ok {
			return nil, fmt.Errorf("quest %q: unknown prerequisite %q", q.ID, q.Prerequisite)
		}
		seen := map[string]bool{q.ID: true}
		for cur := q.Prerequisite; cur != ""; {
			if seen[cur] {
				return nil, fmt.Errorf("quest %q: prerequisite cycle through %q", q.ID, cur)
			}
			seen[cur] = true
			cur = t.quests[cur].Prerequisite
		}
	}
	return t, nil
}

// Get returns a quest by id, or nil if not found.
func (t *QuestTable) Get(id string) *Quest {
	return t.quests[id]
}

// OfferedBy returns all quests offered by the named NPC.
func (t *QuestTable) OfferedBy(npcName string) []*Quest {
	return t.byOffer[npcName]
}

// Count returns the number of loaded quests.
func (t *QuestTable) Count() int {
	return len(t.quests)
}
