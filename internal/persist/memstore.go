package persist

import (
	"context"
	"sync"

	"github.com/shardworld/server/internal/world"
)

// MemStore is an in-memory CharacterStore and ChunkStore for tests and
// database-less local runs.
type MemStore struct {
	mu         sync.RWMutex
	characters map[string]map[string]*Character // wallet → name → character
	chunks     map[string]map[[2]int]world.ChunkState
}

func NewMemStore() *MemStore {
	return &MemStore{
		characters: make(map[string]map[string]*Character),
		chunks:     make(map[string]map[[2]int]world.ChunkState),
	}
}

func (s *MemStore) Load(ctx context.Context, wallet, name string) (*Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.characters[wallet][NormalizeName(name)]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *MemStore) Save(ctx context.Context, c *Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.characters[c.Wallet]
	if w == nil {
		w = make(map[string]*Character)
		s.characters[c.Wallet] = w
	}
	clone := *c
	clone.Name = NormalizeName(c.Name)
	w[clone.Name] = &clone
	return nil
}

func (s *MemStore) List(ctx context.Context, wallet string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for name := range s.characters[wallet] {
		names = append(names, name)
	}
	return names, nil
}

func (s *MemStore) SaveChunks(ctx context.Context, zoneID string, chunks []world.ChunkState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z := s.chunks[zoneID]
	if z == nil {
		z = make(map[[2]int]world.ChunkState)
		s.chunks[zoneID] = z
	}
	for _, c := range chunks {
		z[[2]int{c.CX, c.CZ}] = c
	}
	return nil
}

func (s *MemStore) LoadChunks(ctx context.Context, zoneID string) ([]world.ChunkState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []world.ChunkState
	for _, c := range s.chunks[zoneID] {
		out = append(out, c)
	}
	return out, nil
}
