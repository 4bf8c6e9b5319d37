package ledger

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ValidWallet checks the shape of a wallet address: 0x-prefixed, 40 hex
// digits. Mixed-case addresses additionally must pass the Keccak-256
// checksum; all-lower and all-upper addresses carry no checksum.
func ValidWallet(addr string) bool {
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return false
	}
	hexPart := addr[2:]
	hasUpper, hasLower := false, false
	for _, c := range hexPart {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
			hasLower = true
		case c >= 'A' && c <= 'F':
			hasUpper = true
		default:
			return false
		}
	}
	if !hasUpper || !hasLower {
		return true
	}
	return ChecksumWallet(addr) == addr
}

// ChecksumWallet returns the checksum-cased form of a wallet address.
// A hex digit is upper-cased when the corresponding nibble of
// keccak256(lower(addr)) is >= 8.
func ChecksumWallet(addr string) string {
	lower := strings.ToLower(strings.TrimPrefix(addr, "0x"))
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	sum := h.Sum(nil)

	out := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' {
			nibble := sum[i/2]
			if i%2 == 0 {
				nibble >>= 4
			}
			if nibble&0x0f >= 8 {
				c = c - 'a' + 'A'
			}
		}
		out[i] = c
	}
	return "0x" + string(out)
}

// RequireWallet returns a permanent error when addr is not a valid wallet.
func RequireWallet(addr string) error {
	if !ValidWallet(addr) {
		return &Error{Kind: Permanent, Op: "validate", Err: fmt.Errorf("invalid wallet address %q", addr)}
	}
	return nil
}
