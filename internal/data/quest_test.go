package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestTablePrerequisiteValidation(t *testing.T) {
	tests := []struct {
		name    string
		quests  []Quest
		wantErr string
	}{
		{
			name: "valid chain",
			quests: []Quest{
				{ID: "a", Type: QuestKill, OfferNpc: "Marcus", Count: 3},
				{ID: "b", Type: QuestKill, OfferNpc: "Marcus", Count: 1, Prerequisite: "a"},
			},
		},
		{
			name: "unknown prerequisite",
			quests: []Quest{
				{ID: "a", Type: QuestKill, OfferNpc: "Marcus", Count: 1, Prerequisite: "missing"},
			},
			wantErr: "unknown prerequisite",
		},
		{
			name: "cycle",
			quests: []Quest{
				{ID: "a", Type: QuestKill, OfferNpc: "Marcus", Count: 1, Prerequisite: "b"},
				{ID: "b", Type: QuestKill, OfferNpc: "Marcus", Count: 1, Prerequisite: "a"},
			},
			wantErr: "cycle",
		},
		{
			name: "duplicate id",
			quests: []Quest{
				{ID: "a", Type: QuestKill, OfferNpc: "Marcus", Count: 1},
				{ID: "a", Type: QuestTalk, OfferNpc: "Elena", Count: 1},
			},
			wantErr: "duplicate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := NewQuestTable(tt.quests)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.quests), tbl.Count())
		})
	}
}

func TestQuestTableOfferedBy(t *testing.T) {
	tbl, err := NewQuestTable([]Quest{
		{ID: "rats", Type: QuestKill, OfferNpc: "Marcus", Count: 3},
		{ID: "herbs", Type: QuestTalk, OfferNpc: "Elena", Count: 1},
		{ID: "more_rats", Type: QuestKill, OfferNpc: "Marcus", Count: 5, Prerequisite: "rats"},
	})
	require.NoError(t, err)

	offered := tbl.OfferedBy("Marcus")
	require.Len(t, offered, 2)
	assert.Nil(t, tbl.Get("nope"))
	assert.Equal(t, "herbs", tbl.OfferedBy("Elena")[0].ID)
}
