package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned when a character row does not exist.
var ErrNotFound = errors.New("character not found")

// EquippedItemRecord is the persisted server-side state of one
// equipment slot. The token itself lives on the ledger.
type EquippedItemRecord struct {
	TokenID       string              `json:"tokenId"`
	Durability    int                 `json:"durability"`
	MaxDurability int                 `json:"maxDurability"`
	Broken        bool                `json:"broken,omitempty"`
	Enchantments  []EnchantmentRecord `json:"enchantments,omitempty"`
}

type EnchantmentRecord struct {
	ID    string `json:"id"`
	Stat  string `json:"stat"`
	Bonus int    `json:"bonus"`
}

// QuestRecord is one persisted active quest.
type QuestRecord struct {
	QuestID  string `json:"questId"`
	Progress int    `json:"progress"`
}

// Character is the durable state of one character. Identity is the
// (wallet, name) pair; names are stored NFC-normalized so visually
// identical names compare equal.
type Character struct {
	Wallet  string
	Name    string
	RaceID  string
	ClassID string
	Level   int
	XP      int64
	Kills   int
	HP      int
	Essence int

	ZoneID   string
	X, Y     int
	HomeZone string
	HomeX    int
	HomeY    int

	Professions     []string
	Learned         []string
	CompletedQuests []string
	ActiveQuests    []QuestRecord
	Equipment       map[string]EquippedItemRecord // slot → record
}

// NormalizeName returns the canonical form of a character name.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// CharacterStore is the persistence surface the game layer uses.
type CharacterStore interface {
	Load(ctx context.Context, wallet, name string) (*Character, error)
	Save(ctx context.Context, c *Character) error
	List(ctx context.Context, wallet string) ([]string, error)
}

// CharacterRepo stores characters in Postgres.
type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

func (r *CharacterRepo) Load(ctx context.Context, wallet, name string) (*Character, error) {
	var (
		c                                                      Character
		professions, learned, completed, active, equipmentJSON []byte
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT wallet, name, race_id, class_id, level, xp, kills, hp, essence,
		        zone_id, x, y, home_zone, home_x, home_y,
		        professions, learned, completed_quests, active_quests, equipment
		 FROM characters
		 WHERE wallet = $1 AND name = $2`,
		wallet, NormalizeName(name),
	).Scan(
		&c.Wallet, &c.Name, &c.RaceID, &c.ClassID, &c.Level, &c.XP, &c.Kills, &c.HP, &c.Essence,
		&c.ZoneID, &c.X, &c.Y, &c.HomeZone, &c.HomeX, &c.HomeY,
		&professions, &learned, &completed, &active, &equipmentJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load character: %w", err)
	}
	for _, pair := range []struct {
		raw []byte
		dst any
	}{
		{professions, &c.Professions},
		{learned, &c.Learned},
		{completed, &c.CompletedQuests},
		{active, &c.ActiveQuests},
		{equipmentJSON, &c.Equipment},
	} {
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return nil, fmt.Errorf("decode character %s: %w", c.Name, err)
		}
	}
	return &c, nil
}

func (r *CharacterRepo) Save(ctx context.Context, c *Character) error {
	professions, err := json.Marshal(orEmpty(c.Professions))
	if err != nil {
		return fmt.Errorf("encode professions: %w", err)
	}
	learned, err := json.Marshal(orEmpty(c.Learned))
	if err != nil {
		return fmt.Errorf("encode learned: %w", err)
	}
	completed, err := json.Marshal(orEmpty(c.CompletedQuests))
	if err != nil {
		return fmt.Errorf("encode completed quests: %w", err)
	}
	active, err := json.Marshal(c.ActiveQuests)
	if err != nil {
		return fmt.Errorf("encode active quests: %w", err)
	}
	if c.ActiveQuests == nil {
		active = []byte("[]")
	}
	equipment, err := json.Marshal(c.Equipment)
	if err != nil {
		return fmt.Errorf("encode equipment: %w", err)
	}
	if c.Equipment == nil {
		equipment = []byte("{}")
	}

	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO characters (
		     wallet, name, race_id, class_id, level, xp, kills, hp, essence,
		     zone_id, x, y, home_zone, home_x, home_y,
		     professions, learned, completed_quests, active_quests, equipment, updated_at
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20, now())
		 ON CONFLICT (wallet, name) DO UPDATE SET
		     level = EXCLUDED.level,
		     xp = EXCLUDED.xp,
		     kills = EXCLUDED.kills,
		     hp = EXCLUDED.hp,
		     essence = EXCLUDED.essence,
		     zone_id = EXCLUDED.zone_id,
		     x = EXCLUDED.x,
		     y = EXCLUDED.y,
		     home_zone = EXCLUDED.home_zone,
		     home_x = EXCLUDED.home_x,
		     home_y = EXCLUDED.home_y,
		     professions = EXCLUDED.professions,
		     learned = EXCLUDED.learned,
		     completed_quests = EXCLUDED.completed_quests,
		     active_quests = EXCLUDED.active_quests,
		     equipment = EXCLUDED.equipment,
		     updated_at = now()`,
		c.Wallet, NormalizeName(c.Name), c.RaceID, c.ClassID, c.Level, c.XP, c.Kills, c.HP, c.Essence,
		c.ZoneID, c.X, c.Y, c.HomeZone, c.HomeX, c.HomeY,
		professions, learned, completed, active, equipment,
	)
	if err != nil {
		return fmt.Errorf("save character %s: %w", c.Name, err)
	}
	return nil
}

func (r *CharacterRepo) List(ctx context.Context, wallet string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT name FROM characters WHERE wallet = $1 ORDER BY name`, wallet)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
