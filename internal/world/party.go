package world

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Party-level errors returned by the manager; the dispatcher maps them
// onto the action error taxonomy.
var (
	ErrAlreadyInParty = errors.New("already in a party")
	ErrNotInParty     = errors.New("not in a party")
	ErrPartyFull      = errors.New("party is full")
	ErrNoInvite       = errors.New("no pending invite")
	ErrNotLeader      = errors.New("not the party leader")
)

// PartyID identifies a party.
type PartyID int64

// Party groups players for XP sharing and dungeon entry. Coordination
// only — no shared vitals. Members are ordered by join time; the leader
// is always Members[0].
type Party struct {
	ID      PartyID
	Leader  EntityID
	Members []EntityID
}

// PartyManager owns all parties behind a single mutex; operations are
// short. The memberOf reverse index enforces the one-party-per-agent
// invariant.
type PartyManager struct {
	mu       sync.Mutex
	seq      atomic.Int64
	parties  map[PartyID]*Party
	memberOf map[EntityID]PartyID
	invites  map[EntityID]PartyID // invited player → party
	maxSize  int
}

// NewPartyManager creates an empty manager. maxSize caps party membership.
func NewPartyManager(maxSize int) *PartyManager {
	if maxSize <= 0 {
		maxSize = 5
	}
	return &PartyManager{
		parties:  make(map[PartyID]*Party),
		memberOf: make(map[EntityID]PartyID),
		invites:  make(map[EntityID]PartyID),
		maxSize:  maxSize,
	}
}

// Create starts a new party of size 1 led by the given player.
func (m *PartyManager) Create(leader EntityID) (*Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, in := m.memberOf[leader]; in {
		return nil, ErrAlreadyInParty
	}
	p := &Party{
		ID:      PartyID(m.seq.Add(1)),
		Leader:  leader,
		Members: []EntityID{leader},
	}
	m.parties[p.ID] = p
	m.memberOf[leader] = p.ID
	return p, nil
}

// Invite records a pending invite from any party member to a target.
func (m *PartyManager) Invite(inviter, target EntityID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pid, in := m.memberOf[inviter]
	if !in {
		return ErrNotInParty
	}
	if _, in := m.memberOf[target]; in {
		return ErrAlreadyInParty
	}
	if len(m.parties[pid].Members) >= m.maxSize {
		return ErrPartyFull
	}
	m.invites[target] = pid
	return nil
}

// PendingInvite returns a copy of the party behind the target's pending
// invite without consuming it, or nil. Callers gate Join on conditions
// the manager cannot see, such as zone co-location.
func (m *PartyManager) PendingInvite(target EntityID) *Party {
	m.mu.Lock()
	defer m.mu.Unlock()
	pid, ok := m.invites[target]
	if !ok {
		return nil
	}
	p := m.parties[pid]
	if p == nil {
		return nil
	}
	return &Party{ID: p.ID, Leader: p.Leader, Members: append([]EntityID(nil), p.Members...)}
}

// Join accepts a pending invite. The invite is consumed either way.
func (m *PartyManager) Join(target EntityID) (*Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pid, ok := m.invites[target]
	delete(m.invites, target)
	if !ok {
		return nil, ErrNoInvite
	}
	if _, in := m.memberOf[target]; in {
		return nil, ErrAlreadyInParty
	}
	p := m.parties[pid]
	if p == nil {
		return nil, ErrNoInvite
	}
	if len(p.Members) >= m.maxSize {
		return nil, ErrPartyFull
	}
	p.Members = append(p.Members, target)
	m.memberOf[target] = pid
	return p, nil
}

// Leave removes a player from their party. Leader departure promotes the
// next member by join order; an emptied party dissolves.
func (m *PartyManager) Leave(member EntityID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(member)
}

// Kick removes target from the leader's party.
func (m *PartyManager) Kick(leader, target EntityID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pid, in := m.memberOf[leader]
	if !in {
		return ErrNotInParty
	}
	p := m.parties[pid]
	if p.Leader != leader {
		return ErrNotLeader
	}
	if m.memberOf[target] != pid {
		return ErrNotInParty
	}
	return m.removeLocked(target)
}

func (m *PartyManager) removeLocked(member EntityID) error {
	pid, in := m.memberOf[member]
	if !in {
		return ErrNotInParty
	}
	delete(m.memberOf, member)
	p := m.parties[pid]
	for i, id := range p.Members {
		if id == member {
			p.Members = append(p.Members[:i], p.Members[i+1:]...)
			break
		}
	}
	if len(p.Members) == 0 {
		delete(m.parties, pid)
		return nil
	}
	if p.Leader == member {
		p.Leader = p.Members[0]
	}
	return nil
}

// PartyOf returns the party a player belongs to, or nil.
func (m *PartyManager) PartyOf(member EntityID) *Party {
	m.mu.Lock()
	defer m.mu.Unlock()
	pid, in := m.memberOf[member]
	if !in {
		return nil
	}
	p := m.parties[pid]
	cp := &Party{ID: p.ID, Leader: p.Leader, Members: append([]EntityID(nil), p.Members...)}
	return cp
}

// Members returns the member list of the player's party, or nil when the
// player is unpartied. Implements the roster view the zone runtimes use
// for XP splits.
func (m *PartyManager) Members(member EntityID) []EntityID {
	p := m.PartyOf(member)
	if p == nil {
		return nil
	}
	return p.Members
}

// InParty reports whether the player belongs to any party.
func (m *PartyManager) InParty(member EntityID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, in := m.memberOf[member]
	return in
}
