// Package dispatch is the verb surface of the world core. It accepts
// authenticated action requests, resolves the target zone through the
// world manager and runs the action on that zone's queue. The wire
// format in front of it (HTTP, WS, whatever) is someone else's problem.
package dispatch

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/game"
	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/world"
	"github.com/shardworld/server/internal/zone"
)

// Verb names one action the core accepts.
type Verb string

const (
	VerbMove         Verb = "move"
	VerbAttack       Verb = "attack"
	VerbCast         Verb = "castTechnique"
	VerbGatherOre    Verb = "gatherOre"
	VerbGatherFlower Verb = "gatherFlower"
	VerbCraft        Verb = "craft"
	VerbUpgrade      Verb = "upgrade"
	VerbEnchant      Verb = "applyEnchant"
	VerbEquip        Verb = "equip"
	VerbUnequip      Verb = "unequip"
	VerbLearn        Verb = "learn"
	VerbBuy          Verb = "buy"
	VerbSell         Verb = "sell"
	VerbAcceptQuest  Verb = "acceptQuest"
	VerbTurnInQuest  Verb = "turnInQuest"
	VerbTalkQuest    Verb = "talkQuest"
	VerbPartyCreate  Verb = "partyCreate"
	VerbPartyInvite  Verb = "partyInvite"
	VerbPartyJoin    Verb = "partyJoin"
	VerbPartyLeave   Verb = "partyLeave"
	VerbPartyKick    Verb = "partyKick"
	VerbOpenGate     Verb = "openDungeonGate"
	VerbLeaveDungeon Verb = "leaveDungeon"
	VerbPortal       Verb = "transitionPortal"
	VerbPortalAuto   Verb = "transitionAuto"
	VerbLogin        Verb = "login"
	VerbLogout       Verb = "logout"
	VerbCreateChar   Verb = "createCharacter"
)

// Request is one authenticated action. Identity is the wallet; the
// session supplies the zone and entity. ID is assigned when empty and
// only used for tracing; repeated submissions are at-least-once, with
// the compensation paths below the queue keeping state consistent.
type Request struct {
	ID     string
	Verb   Verb
	Wallet string

	Target      world.EntityID // npc / mob / node / station / gate
	X, Y        int
	TechniqueID string
	RecipeID    string
	QuestID     string
	ItemID      string
	Slot        string
	Qty         int
	Name        string // character name, portal name, profession/technique to learn
	RaceID      string
	ClassID     string
}

// Result carries the verb-specific success payload.
type Result struct {
	Session    *game.Session
	InstanceID string
}

// Dispatcher routes requests into the world.
type Dispatcher struct {
	world *game.Manager
	log   *zap.Logger
}

func New(world *game.Manager, log *zap.Logger) *Dispatcher {
	return &Dispatcher{world: world, log: log}
}

// Dispatch validates a request, runs it and maps the outcome onto the
// action error taxonomy. Zone-queue verbs block until the zone replies.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if err := ledger.RequireWallet(req.Wallet); err != nil {
		return nil, &Error{Kind: zone.KindValidation, Code: "invalid_wallet", Verb: req.Verb, cause: err}
	}

	res, err := d.route(ctx, req)
	if err != nil {
		d.log.Debug("action rejected",
			zap.String("action", req.ID),
			zap.String("verb", string(req.Verb)),
			zap.String("wallet", req.Wallet),
			zap.Error(err))
		return nil, wrap(req.Verb, err)
	}
	if res == nil {
		res = &Result{}
	}
	return res, nil
}

func (d *Dispatcher) route(ctx context.Context, req Request) (*Result, error) {
	// Session-less verbs first.
	switch req.Verb {
	case VerbCreateChar:
		_, err := d.world.CreateCharacter(ctx, req.Wallet, req.Name, req.RaceID, req.ClassID)
		return nil, err
	case VerbLogin:
		s, err := d.world.Login(ctx, req.Wallet, req.Name)
		if err != nil {
			return nil, err
		}
		return &Result{Session: s}, nil
	case VerbLogout:
		return nil, d.world.Logout(ctx, req.Wallet)
	case VerbPortal:
		return nil, d.world.TransitionPortal(ctx, req.Wallet, req.Name)
	case VerbPortalAuto:
		return nil, d.world.TransitionPortal(ctx, req.Wallet, "")
	case VerbOpenGate:
		id, err := d.world.OpenDungeonGate(ctx, req.Wallet, req.Target)
		if err != nil {
			return nil, err
		}
		return &Result{InstanceID: id}, nil
	case VerbLeaveDungeon:
		return nil, d.world.LeaveDungeon(ctx, req.Wallet)
	}

	s := d.world.Session(req.Wallet)
	if s == nil {
		return nil, &Error{Kind: zone.KindAuthorization, Code: "no_session", Verb: req.Verb}
	}

	switch req.Verb {
	case VerbPartyCreate:
		_, err := d.world.Parties().Create(s.EntityID)
		return nil, err
	case VerbPartyInvite:
		// Invites only reach players standing in the same zone.
		ts := d.world.SessionByEntity(req.Target)
		if ts == nil || ts.ZoneID != s.ZoneID {
			return nil, &Error{Kind: zone.KindPrecondition, Code: "not_same_zone", Verb: req.Verb}
		}
		return nil, d.world.Parties().Invite(s.EntityID, req.Target)
	case VerbPartyJoin:
		// Accepting requires a party member in the joiner's zone. The
		// invite survives the rejection so the joiner can walk over and
		// retry.
		if p := d.world.Parties().PendingInvite(s.EntityID); p != nil && !d.sharesZone(s, p.Members) {
			return nil, &Error{Kind: zone.KindPrecondition, Code: "not_same_zone", Verb: req.Verb}
		}
		_, err := d.world.Parties().Join(s.EntityID)
		return nil, err
	case VerbPartyLeave:
		return nil, d.world.Parties().Leave(s.EntityID)
	case VerbPartyKick:
		return nil, d.world.Parties().Kick(s.EntityID, req.Target)
	}

	rt := d.world.Zone(s.ZoneID)
	if rt == nil {
		return nil, &Error{Kind: zone.KindInternal, Code: "zone_gone", Verb: req.Verb}
	}
	wallet, eid := req.Wallet, s.EntityID

	switch req.Verb {
	case VerbMove:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleMove(wallet, eid, req.X, req.Y)
		})
	case VerbAttack:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleAttack(wallet, eid, req.Target)
		})
	case VerbCast:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleCast(wallet, eid, req.TechniqueID, req.Target)
		})
	case VerbGatherOre, VerbGatherFlower:
		return nil, rt.Exec(ctx, func(z *zone.Runtime, done func(error)) {
			z.HandleGather(wallet, eid, req.Target, done)
		})
	case VerbCraft, VerbUpgrade:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleCraft(wallet, eid, req.RecipeID)
		})
	case VerbEnchant:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleEnchant(wallet, eid, req.ItemID, data.Slot(req.Slot))
		})
	case VerbEquip:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleEquip(wallet, eid, req.ItemID)
		})
	case VerbUnequip:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleUnequip(wallet, eid, data.Slot(req.Slot))
		})
	case VerbLearn:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleLearn(wallet, eid, req.Target, req.Name)
		})
	case VerbBuy:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleBuy(wallet, eid, req.Target, req.ItemID, req.Qty)
		})
	case VerbSell:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleSell(wallet, eid, req.Target, req.ItemID, req.Qty)
		})
	case VerbAcceptQuest:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleAcceptQuest(wallet, eid, req.Target, req.QuestID)
		})
	case VerbTurnInQuest:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleTurnInQuest(wallet, eid, req.Target, req.QuestID)
		})
	case VerbTalkQuest:
		return nil, rt.ExecFunc(ctx, func(z *zone.Runtime) error {
			return z.HandleTalkQuest(wallet, eid, req.Target)
		})
	}
	return nil, &Error{Kind: zone.KindValidation, Code: "unknown_verb", Verb: req.Verb}
}

// sharesZone reports whether any listed entity has a live session in
// the same zone as s.
func (d *Dispatcher) sharesZone(s *game.Session, members []world.EntityID) bool {
	for _, id := range members {
		if ms := d.world.SessionByEntity(id); ms != nil && ms.ZoneID == s.ZoneID {
			return true
		}
	}
	return false
}
