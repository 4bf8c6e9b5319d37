package dispatch

import (
	"errors"
	"fmt"

	"github.com/shardworld/server/internal/game"
	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/persist"
	"github.com/shardworld/server/internal/world"
	"github.com/shardworld/server/internal/zone"
)

// Error is the typed failure the dispatcher hands to the edge layer:
// the action kind taxonomy plus a stable machine-readable code.
type Error struct {
	Kind  zone.Kind
	Code  string
	Verb  Verb
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s %s: %s", e.Verb, e.Kind, e.Code)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Verb, e.Kind, e.Code, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// wrap maps whatever the lower layers produced onto a dispatch error.
// Zone errors already carry the taxonomy; manager, party and ledger
// errors are classified here.
func wrap(verb Verb, err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	var ze *zone.Error
	if errors.As(err, &ze) {
		return &Error{Kind: ze.Kind, Code: ze.Code, Verb: verb, cause: err}
	}

	switch {
	case errors.Is(err, game.ErrNoSession):
		return &Error{Kind: zone.KindAuthorization, Code: "no_session", Verb: verb, cause: err}
	case errors.Is(err, game.ErrSessionExists):
		return &Error{Kind: zone.KindConflict, Code: "session_exists", Verb: verb, cause: err}
	case errors.Is(err, persist.ErrNotFound):
		return &Error{Kind: zone.KindValidation, Code: "character_not_found", Verb: verb, cause: err}
	case errors.Is(err, world.ErrAlreadyInParty):
		return &Error{Kind: zone.KindConflict, Code: "already_in_party", Verb: verb, cause: err}
	case errors.Is(err, world.ErrNotInParty):
		return &Error{Kind: zone.KindPrecondition, Code: "not_in_party", Verb: verb, cause: err}
	case errors.Is(err, world.ErrPartyFull):
		return &Error{Kind: zone.KindPrecondition, Code: "party_full", Verb: verb, cause: err}
	case errors.Is(err, world.ErrNoInvite):
		return &Error{Kind: zone.KindPrecondition, Code: "no_invite", Verb: verb, cause: err}
	case errors.Is(err, world.ErrNotLeader):
		return &Error{Kind: zone.KindAuthorization, Code: "not_leader", Verb: verb, cause: err}
	case ledger.IsTransient(err):
		return &Error{Kind: zone.KindLedgerTransient, Code: "ledger", Verb: verb, cause: err}
	case ledger.IsPermanent(err):
		return &Error{Kind: zone.KindLedgerPermanent, Code: "ledger", Verb: verb, cause: err}
	}
	return &Error{Kind: zone.KindInternal, Code: "internal", Verb: verb, cause: err}
}
