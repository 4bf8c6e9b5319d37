package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "0x00000000000000000000000000000000000000aa"

func TestMemoryMintBurnBalance(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	tx, err := m.MintItem(ctx, testWallet, "coal_ore", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, tx)

	bal, err := m.GetItemBalance(ctx, testWallet, "coal_ore")
	require.NoError(t, err)
	assert.EqualValues(t, 3, bal)

	_, err = m.BurnItem(ctx, testWallet, "coal_ore", 2)
	require.NoError(t, err)

	bal, err = m.GetItemBalance(ctx, testWallet, "coal_ore")
	require.NoError(t, err)
	assert.EqualValues(t, 1, bal)
}

func TestMemoryBurnInsufficientIsPermanent(t *testing.T) {
	m := NewMemory()
	_, err := m.BurnItem(context.Background(), testWallet, "coal_ore", 1)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.False(t, IsTransient(err))
}

func TestMemoryFaultInjection(t *testing.T) {
	m := NewMemory()
	m.Fault = func(op, wallet, tokenID string) error {
		if op == "mint" {
			return &Error{Kind: Transient, Op: op, Err: context.DeadlineExceeded}
		}
		return nil
	}
	_, err := m.MintItem(context.Background(), testWallet, "coal_ore", 1)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestMintCurrencyUsesCurrencyToken(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.MintCurrency(ctx, testWallet, 25)
	require.NoError(t, err)
	bal, err := m.GetItemBalance(ctx, testWallet, CurrencyToken)
	require.NoError(t, err)
	assert.EqualValues(t, 25, bal)
}

type slowLedger struct{ *Memory }

func (s slowLedger) MintItem(ctx context.Context, wallet, tokenID string, qty int64) (TxHandle, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(time.Second):
		return s.Memory.MintItem(ctx, wallet, tokenID, qty)
	}
}

func TestWithTimeoutMapsDeadlineToTransient(t *testing.T) {
	l := WithTimeout(slowLedger{NewMemory()}, 10*time.Millisecond)
	_, err := l.MintItem(context.Background(), testWallet, "coal_ore", 1)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestValidWallet(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"0x00000000000000000000000000000000000000aa", true},
		{"0x00000000000000000000000000000000000000AA", true},
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true}, // valid checksum
		{"0x5aaeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false}, // corrupted case
		{"0x123", false},
		{"00000000000000000000000000000000000000aa00", false},
		{"0x0000000000000000000000000000000000000zzz", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidWallet(tt.addr), tt.addr)
	}
}

func TestChecksumWalletRoundTrip(t *testing.T) {
	addr := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	sum := ChecksumWallet(addr)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", sum)
	assert.True(t, ValidWallet(sum))
}
