package zone

import (
	"go.uber.org/zap"

	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/world"
)

// HandleAcceptQuest starts a quest offered by a nearby NPC. Prerequisite
// quests must already be completed; a quest can only run or complete
// once per character.
func (r *Runtime) HandleAcceptQuest(wallet string, id, npcID world.EntityID, questID string) error {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return zerr
	}
	npc, zerr := r.npcNear(e, npcID, r.deps.Game.NpcProximity,
		world.TypeQuestGiver, world.TypeMerchant, world.TypeTrainer, world.TypeProfessionTrainer)
	if zerr != nil {
		return zerr
	}
	q := r.deps.Catalog.Quests.Get(questID)
	if q == nil {
		return errValidation("no_such_quest", "%s", questID)
	}
	if q.OfferNpc != npc.Name {
		return errPrecondition("wrong_npc", "%s does not offer %s", npc.Name, questID)
	}
	p := e.Player
	if p.HasCompleted(questID) {
		return errConflict("quest_completed", "%s", questID)
	}
	if p.ActiveQuest(questID) != nil {
		return errConflict("quest_active", "%s", questID)
	}
	if q.Prerequisite != "" && !p.HasCompleted(q.Prerequisite) {
		return errPrecondition("prerequisite_missing", "%s requires %s", questID, q.Prerequisite)
	}
	p.ActiveQuests = append(p.ActiveQuests, &world.QuestProgress{
		QuestID:       questID,
		StartedAtTick: r.tick,
	})
	r.event("quest-accept", e.ID, npcID, questID)
	return nil
}

// HandleTalkQuest talks to an NPC. Eligible talk quests the NPC offers
// are accepted on the spot, then any active talk quest targeting the
// NPC has its objective completed.
func (r *Runtime) HandleTalkQuest(wallet string, id, npcID world.EntityID) error {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return zerr
	}
	npc, zerr := r.npcNear(e, npcID, r.deps.Game.NpcProximity,
		world.TypeQuestGiver, world.TypeMerchant, world.TypeTrainer, world.TypeProfessionTrainer, world.TypeAuctioneer)
	if zerr != nil {
		return zerr
	}
	p := e.Player
	matched := 0
	for _, q := range r.deps.Catalog.Quests.OfferedBy(npc.Name) {
		if q.Type != data.QuestTalk || p.HasCompleted(q.ID) || p.ActiveQuest(q.ID) != nil {
			continue
		}
		if q.Prerequisite != "" && !p.HasCompleted(q.Prerequisite) {
			continue
		}
		p.ActiveQuests = append(p.ActiveQuests, &world.QuestProgress{
			QuestID:       q.ID,
			StartedAtTick: r.tick,
		})
		matched++
		r.event("quest-accept", e.ID, npcID, q.ID)
	}
	for _, qp := range e.Player.ActiveQuests {
		q := r.deps.Catalog.Quests.Get(qp.QuestID)
		if q == nil || q.TargetNpcName != npc.Name || qp.Progress >= q.Count {
			continue
		}
		qp.Progress = q.Count
		matched++
		r.event("quest-progress", e.ID, npcID, qp.QuestID)
	}
	if matched == 0 {
		return errPrecondition("no_talk_quest", "nothing to discuss with %s", npc.Name)
	}
	return nil
}

// creditKillQuests advances every active kill quest matching the dead
// mob's name. Progress caps at the quest count.
func (r *Runtime) creditKillQuests(e *world.Entity, mobName string) {
	for _, qp := range e.Player.ActiveQuests {
		q := r.deps.Catalog.Quests.Get(qp.QuestID)
		if q == nil || q.TargetMobName != mobName || qp.Progress >= q.Count {
			continue
		}
		qp.Progress++
		r.event("quest-progress", e.ID, 0, qp.QuestID)
	}
}

// HandleTurnInQuest completes a finished quest at its turn-in NPC.
// Completion commits before rewards are granted, in order: XP, then
// currency, then items. A ledger failure mid-grant surfaces as an error
// but never reopens the quest; the shortfall is logged for reconciliation.
func (r *Runtime) HandleTurnInQuest(wallet string, id, npcID world.EntityID, questID string) error {
	e, zerr := r.alivePlayer(wallet, id)
	if zerr != nil {
		return zerr
	}
	npc, zerr := r.npcNear(e, npcID, r.deps.Game.NpcProximity,
		world.TypeQuestGiver, world.TypeMerchant, world.TypeTrainer, world.TypeProfessionTrainer)
	if zerr != nil {
		return zerr
	}
	q := r.deps.Catalog.Quests.Get(questID)
	if q == nil {
		return errValidation("no_such_quest", "%s", questID)
	}
	if q.TurnInNpc != npc.Name {
		return errPrecondition("wrong_npc", "%s turns in at %s", questID, q.TurnInNpc)
	}
	p := e.Player
	qp := p.ActiveQuest(questID)
	if qp == nil {
		return errPrecondition("quest_not_active", "%s", questID)
	}
	if qp.Progress < q.Count {
		return errPrecondition("quest_incomplete", "%s at %d/%d", questID, qp.Progress, q.Count)
	}

	// Commit completion first.
	kept := p.ActiveQuests[:0]
	for _, aq := range p.ActiveQuests {
		if aq.QuestID != questID {
			kept = append(kept, aq)
		}
	}
	p.ActiveQuests = kept
	p.CompletedQuests = append(p.CompletedQuests, questID)
	r.event("quest-complete", e.ID, npcID, questID)

	if q.RewardXP > 0 {
		r.grantXP(e, int64(float64(q.RewardXP)*r.deps.Rates.XPRate))
	}
	if q.RewardCurrency > 0 {
		ctx, cancel := r.ledgerCtx()
		_, err := r.deps.Ledger.MintCurrency(ctx, wallet, q.RewardCurrency)
		cancel()
		if err != nil {
			r.log.Warn("quest currency reward failed",
				zap.String("quest", questID),
				zap.String("wallet", wallet),
				zap.Error(err))
			r.event("reward-mint-failed", e.ID, 0, questID)
			return errLedger("mint", err)
		}
	}
	for _, item := range q.RewardItems {
		ctx, cancel := r.ledgerCtx()
		_, err := r.deps.Ledger.MintItem(ctx, wallet, item.ItemID, int64(item.Qty))
		cancel()
		if err != nil {
			r.log.Warn("quest item reward failed",
				zap.String("quest", questID),
				zap.String("item", item.ItemID),
				zap.Error(err))
			r.event("reward-mint-failed", e.ID, 0, questID)
			return errLedger("mint", err)
		}
	}
	return nil
}
