package persist

import (
	"context"

	"go.uber.org/zap"

	"github.com/shardworld/server/internal/ledger"
)

// AuditLedger decorates a ledger adapter with an append-only audit
// trail. Every operation outcome is written to the ledger_audit table
// off the caller's path; audit failures are logged, never surfaced,
// since the ledger itself stays authoritative.
type AuditLedger struct {
	inner ledger.Ledger
	db    *DB
	log   *zap.Logger
}

func NewAuditLedger(inner ledger.Ledger, db *DB, log *zap.Logger) *AuditLedger {
	return &AuditLedger{inner: inner, db: db, log: log}
}

func (a *AuditLedger) record(op, wallet, tokenID string, qty int64, tx ledger.TxHandle, err error) {
	outcome, detail := "ok", ""
	if err != nil {
		detail = err.Error()
		outcome = "transient"
		if ledger.IsPermanent(err) {
			outcome = "permanent"
		}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dbWriteTimeout)
		defer cancel()
		if _, dbErr := a.db.Pool.Exec(ctx,
			`INSERT INTO ledger_audit (op, wallet, token_id, qty, tx_handle, outcome, detail)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			op, wallet, tokenID, qty, string(tx), outcome, detail,
		); dbErr != nil {
			a.log.Warn("ledger audit write failed",
				zap.String("op", op),
				zap.String("wallet", wallet),
				zap.Error(dbErr))
		}
	}()
}

func (a *AuditLedger) MintItem(ctx context.Context, wallet, tokenID string, qty int64) (ledger.TxHandle, error) {
	tx, err := a.inner.MintItem(ctx, wallet, tokenID, qty)
	a.record("mint", wallet, tokenID, qty, tx, err)
	return tx, err
}

func (a *AuditLedger) BurnItem(ctx context.Context, wallet, tokenID string, qty int64) (ledger.TxHandle, error) {
	tx, err := a.inner.BurnItem(ctx, wallet, tokenID, qty)
	a.record("burn", wallet, tokenID, qty, tx, err)
	return tx, err
}

func (a *AuditLedger) GetItemBalance(ctx context.Context, wallet, tokenID string) (int64, error) {
	// Reads are not audited.
	return a.inner.GetItemBalance(ctx, wallet, tokenID)
}

func (a *AuditLedger) MintCurrency(ctx context.Context, wallet string, amount int64) (ledger.TxHandle, error) {
	tx, err := a.inner.MintCurrency(ctx, wallet, amount)
	a.record("mint", wallet, ledger.CurrencyToken, amount, tx, err)
	return tx, err
}
