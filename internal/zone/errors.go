package zone

import (
	"errors"
	"fmt"

	"github.com/shardworld/server/internal/ledger"
)

// Kind classifies action failures. The edge layer maps kinds onto
// structured client codes; the core only attaches an optional details
// string for debugging.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthorization
	KindPrecondition
	KindConflict
	KindLedgerTransient
	KindLedgerPermanent
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindPrecondition:
		return "precondition"
	case KindConflict:
		return "conflict"
	case KindLedgerTransient:
		return "ledger-transient"
	case KindLedgerPermanent:
		return "ledger-permanent"
	default:
		return "internal"
	}
}

// Error is the typed failure every action path produces. Code is a
// stable machine-readable identifier; Details is free-form.
type Error struct {
	Kind    Kind
	Code    string
	Details string
}

func (e *Error) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Code, e.Details)
}

func errValidation(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Details: fmt.Sprintf(format, args...)}
}

func errAuthorization(code, format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Code: code, Details: fmt.Sprintf(format, args...)}
}

func errPrecondition(code, format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Code: code, Details: fmt.Sprintf(format, args...)}
}

func errConflict(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Details: fmt.Sprintf(format, args...)}
}

func errInternal(code, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Code: code, Details: fmt.Sprintf(format, args...)}
}

// errLedger maps an adapter failure onto the action taxonomy.
func errLedger(op string, err error) *Error {
	kind := KindLedgerTransient
	if ledger.IsPermanent(err) {
		kind = KindLedgerPermanent
	}
	return &Error{Kind: kind, Code: "ledger_" + op, Details: err.Error()}
}

// KindOf extracts the kind from an action error; unknown errors are internal.
func KindOf(err error) Kind {
	var ze *Error
	if errors.As(err, &ze) {
		return ze.Kind
	}
	return KindInternal
}

// CodeOf extracts the stable code from an action error.
func CodeOf(err error) string {
	var ze *Error
	if errors.As(err, &ze) {
		return ze.Code
	}
	return "internal"
}
