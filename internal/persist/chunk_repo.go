package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shardworld/server/internal/world"
)

// ChunkStore persists modified terrain chunks. Base terrain regenerates
// from the zone seed; only diffs are stored.
type ChunkStore interface {
	SaveChunks(ctx context.Context, zoneID string, chunks []world.ChunkState) error
	LoadChunks(ctx context.Context, zoneID string) ([]world.ChunkState, error)
}

// ChunkRepo stores chunk diffs as JSONB rows keyed by zone and chunk
// coordinates.
type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) SaveChunks(ctx context.Context, zoneID string, chunks []world.ChunkState) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("chunk save begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		state, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode chunk (%d,%d): %w", c.CX, c.CZ, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO zone_chunks (zone_id, cx, cz, state, updated_at)
			 VALUES ($1, $2, $3, $4, now())
			 ON CONFLICT (zone_id, cx, cz) DO UPDATE SET
			     state = EXCLUDED.state, updated_at = now()`,
			zoneID, c.CX, c.CZ, state,
		); err != nil {
			return fmt.Errorf("upsert chunk (%d,%d): %w", c.CX, c.CZ, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *ChunkRepo) LoadChunks(ctx context.Context, zoneID string) ([]world.ChunkState, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT state FROM zone_chunks WHERE zone_id = $1`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()

	var chunks []world.ChunkState
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var c world.ChunkState
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
