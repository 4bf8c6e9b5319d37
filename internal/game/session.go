package game

import (
	"time"

	"github.com/shardworld/server/internal/world"
)

// Session binds an authenticated wallet to its live character entity.
// One session per wallet.
type Session struct {
	Wallet    string
	Character string
	ZoneID    string
	EntityID  world.EntityID
	LoginAt   time.Time
}

// Session returns a copy of the wallet's live session, or nil.
func (m *Manager) Session(wallet string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[wallet]
	if !ok {
		return nil
	}
	copied := *s
	return &copied
}

// SessionByEntity returns a copy of the live session owning the entity,
// or nil. Linear over the session table; callers are infrequent verbs.
func (m *Manager) SessionByEntity(id world.EntityID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.EntityID == id {
			copied := *s
			return &copied
		}
	}
	return nil
}

func (m *Manager) snapshotSessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		copied := *s
		out = append(out, &copied)
	}
	return out
}

func (m *Manager) setSessionZone(wallet, zoneID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[wallet]; ok {
		s.ZoneID = zoneID
	}
}

func (m *Manager) putSession(s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.Wallet]; exists {
		return false
	}
	m.sessions[s.Wallet] = s
	return true
}

func (m *Manager) dropSession(wallet string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[wallet]
	delete(m.sessions, wallet)
	return s
}
