// Package ledger defines the adapter through which the world core talks to
// the external asset ledger. The ledger is authoritative for token
// ownership and quantities; the core never caches balances beyond a single
// request and only asks for changes through this interface.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// CurrencyToken is the token id used for the world currency. Currency
// operations are item operations on this token, which keeps balance
// queries uniform.
const CurrencyToken = "gold"

// TxHandle identifies a committed ledger transaction.
type TxHandle string

// ErrorKind separates retry-safe failures from final rejections.
type ErrorKind int

const (
	// Transient means the call timed out or returned a retryable status.
	// The caller is expected to compensate local state and may retry.
	Transient ErrorKind = iota
	// Permanent means the ledger rejected the operation. No retry.
	Permanent
)

// Error is the typed failure every adapter operation returns.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	kind := "transient"
	if e.Kind == Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("ledger %s (%s): %v", e.Op, kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a transient ledger error.
func IsTransient(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Kind == Transient
}

// IsPermanent reports whether err is a permanent ledger error.
func IsPermanent(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Kind == Permanent
}

// Ledger is the adapter interface the core uses for all token operations.
// Implementations must be safe for concurrent use; calls from different
// zones are not ordered relative to each other.
type Ledger interface {
	// MintItem credits qty of a token to the wallet.
	MintItem(ctx context.Context, wallet, tokenID string, qty int64) (TxHandle, error)
	// BurnItem debits qty of a token from the wallet. Fails permanent if
	// the wallet balance is insufficient.
	BurnItem(ctx context.Context, wallet, tokenID string, qty int64) (TxHandle, error)
	// GetItemBalance returns the wallet's balance of a token.
	GetItemBalance(ctx context.Context, wallet, tokenID string) (int64, error)
	// MintCurrency credits world currency to the wallet.
	MintCurrency(ctx context.Context, wallet string, amount int64) (TxHandle, error)
}
