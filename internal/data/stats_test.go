package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testStatTable() *StatTable {
	return NewStatTable(
		[]Race{
			{ID: "human", Modifiers: RaceModifiers{Str: 1, Def: 1, HP: 1, Agi: 1, Int: 1, MP: 1, Faith: 1, Luck: 1}},
			{ID: "orc", Modifiers: RaceModifiers{Str: 1.2, Def: 1.1, HP: 1.15, Agi: 0.9, Int: 0.8, MP: 0.8, Faith: 0.9, Luck: 1}},
		},
		[]Class{
			{ID: "warrior", Base: Stats{Str: 12, Def: 10, HP: 100, Agi: 8, Int: 4, MP: 20, Faith: 5, Luck: 5}},
		},
		0.02, 60,
	)
}

func TestBaseStatsLevelScaling(t *testing.T) {
	tbl := testStatTable()

	l1 := tbl.BaseStats("human", "warrior", 1)
	assert.Equal(t, 12, l1.Str)
	assert.Equal(t, 100, l1.HP)

	// level 10: scale = 1 + 0.02*9 = 1.18
	l10 := tbl.BaseStats("human", "warrior", 10)
	assert.Equal(t, 14, l10.Str)  // round(12*1.18) = round(14.16)
	assert.Equal(t, 118, l10.HP)

	// orc str modifier 1.2 at level 1
	orc := tbl.BaseStats("orc", "warrior", 1)
	assert.Equal(t, 14, orc.Str) // round(12*1.2)
}

func TestBaseStatsUnknownRaceFallsBack(t *testing.T) {
	tbl := testStatTable()
	s := tbl.BaseStats("gnome", "warrior", 1)
	assert.Equal(t, 12, s.Str)
}

func TestXPForLevel(t *testing.T) {
	assert.EqualValues(t, 0, XPForLevel(1))
	assert.EqualValues(t, 100, XPForLevel(2))
	assert.EqualValues(t, 300, XPForLevel(3))
	// monotone
	prev := int64(-1)
	for l := 1; l <= 60; l++ {
		v := XPForLevel(l)
		assert.Greater(t, v, prev)
		prev = v
	}
}
