package ledger

import (
	"context"
	"errors"
	"time"
)

// WithTimeout wraps a ledger so that every call runs under a deadline.
// Deadline expiry surfaces as a transient error: the caller compensates,
// and if the underlying call later succeeds anyway the resulting
// inconsistency is the outer layer's to log, not to reconcile.
func WithTimeout(inner Ledger, timeout time.Duration) Ledger {
	return &timeoutLedger{inner: inner, timeout: timeout}
}

type timeoutLedger struct {
	inner   Ledger
	timeout time.Duration
}

func (t *timeoutLedger) call(ctx context.Context, op string, fn func(context.Context) (TxHandle, error)) (TxHandle, error) {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	tx, err := fn(cctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !IsPermanent(err) {
		return "", &Error{Kind: Transient, Op: op, Err: err}
	}
	return tx, err
}

func (t *timeoutLedger) MintItem(ctx context.Context, wallet, tokenID string, qty int64) (TxHandle, error) {
	return t.call(ctx, "mint", func(c context.Context) (TxHandle, error) {
		return t.inner.MintItem(c, wallet, tokenID, qty)
	})
}

func (t *timeoutLedger) BurnItem(ctx context.Context, wallet, tokenID string, qty int64) (TxHandle, error) {
	return t.call(ctx, "burn", func(c context.Context) (TxHandle, error) {
		return t.inner.BurnItem(c, wallet, tokenID, qty)
	})
}

func (t *timeoutLedger) GetItemBalance(ctx context.Context, wallet, tokenID string) (int64, error) {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	bal, err := t.inner.GetItemBalance(cctx, wallet, tokenID)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !IsPermanent(err) {
		return 0, &Error{Kind: Transient, Op: "balance", Err: err}
	}
	return bal, err
}

func (t *timeoutLedger) MintCurrency(ctx context.Context, wallet string, amount int64) (TxHandle, error) {
	return t.call(ctx, "mint-currency", func(c context.Context) (TxHandle, error) {
		return t.inner.MintCurrency(c, wallet, amount)
	})
}
