package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Memory is an in-process ledger used by tests and local development.
// It enforces the same failure surface as a real adapter: burns beyond
// the balance fail permanent, and an injectable fault hook lets tests
// exercise the compensation paths.
type Memory struct {
	mu       sync.Mutex
	balances map[string]map[string]int64 // wallet → token → qty
	txSeq    atomic.Int64

	// Fault, when set, is consulted before every operation. Returning a
	// non-nil error fails the operation with it.
	Fault func(op, wallet, tokenID string) error
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[string]map[string]int64)}
}

func (m *Memory) nextTx() TxHandle {
	return TxHandle(fmt.Sprintf("memtx-%d", m.txSeq.Add(1)))
}

func (m *Memory) fault(op, wallet, tokenID string) error {
	if m.Fault != nil {
		return m.Fault(op, wallet, tokenID)
	}
	return nil
}

func (m *Memory) MintItem(ctx context.Context, wallet, tokenID string, qty int64) (TxHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Kind: Transient, Op: "mint", Err: err}
	}
	if err := m.fault("mint", wallet, tokenID); err != nil {
		return "", err
	}
	if qty <= 0 {
		return "", &Error{Kind: Permanent, Op: "mint", Err: fmt.Errorf("non-positive qty %d", qty)}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.balances[wallet]
	if w == nil {
		w = make(map[string]int64)
		m.balances[wallet] = w
	}
	w[tokenID] += qty
	return m.nextTx(), nil
}

func (m *Memory) BurnItem(ctx context.Context, wallet, tokenID string, qty int64) (TxHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Kind: Transient, Op: "burn", Err: err}
	}
	if err := m.fault("burn", wallet, tokenID); err != nil {
		return "", err
	}
	if qty <= 0 {
		return "", &Error{Kind: Permanent, Op: "burn", Err: fmt.Errorf("non-positive qty %d", qty)}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.balances[wallet]
	if w == nil || w[tokenID] < qty {
		return "", &Error{Kind: Permanent, Op: "burn", Err: fmt.Errorf("insufficient balance of %s", tokenID)}
	}
	w[tokenID] -= qty
	return m.nextTx(), nil
}

func (m *Memory) GetItemBalance(ctx context.Context, wallet, tokenID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &Error{Kind: Transient, Op: "balance", Err: err}
	}
	if err := m.fault("balance", wallet, tokenID); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[wallet][tokenID], nil
}

func (m *Memory) MintCurrency(ctx context.Context, wallet string, amount int64) (TxHandle, error) {
	return m.MintItem(ctx, wallet, CurrencyToken, amount)
}
