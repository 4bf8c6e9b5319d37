package zone

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shardworld/server/internal/config"
	"github.com/shardworld/server/internal/data"
	"github.com/shardworld/server/internal/ledger"
	"github.com/shardworld/server/internal/world"
)

const (
	waitLong = 2 * time.Second
	waitPoll = 5 * time.Millisecond

	walletA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	walletB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	walletC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func testCatalog(t *testing.T) *data.Catalog {
	t.Helper()
	items := data.NewItemTable([]data.ItemTemplate{
		{ID: "rusty_sword", Name: "Rusty Sword", Category: data.CategoryWeapon, Slot: data.SlotWeapon,
			WeaponCoef: 1.5, MaxDurability: 20, BuyPrice: 50, SellPrice: 10, Bonus: data.Stats{Str: 2}},
		{ID: "iron_sword", Name: "Iron Sword", Category: data.CategoryWeapon, Slot: data.SlotWeapon,
			WeaponCoef: 2.0, MaxDurability: 40, SellPrice: 40, Bonus: data.Stats{Str: 5}},
		{ID: "stone_pickaxe", Name: "Stone Pickaxe", Category: data.CategoryTool, Slot: data.SlotWeapon,
			Profession: data.ProfessionMining, Tier: 1, MaxDurability: 64, BuyPrice: 30, SellPrice: 6},
		{ID: "coal", Name: "Coal", Category: data.CategoryMaterial, SellPrice: 5},
		{ID: "iron_ore", Name: "Iron Ore", Category: data.CategoryMaterial, SellPrice: 8},
		{ID: "iron_ingot", Name: "Iron Ingot", Category: data.CategoryMaterial, SellPrice: 20},
		{ID: "rat_tail", Name: "Rat Tail", Category: data.CategoryMaterial, SellPrice: 2},
		{ID: "health_potion", Name: "Health Potion", Category: data.CategoryConsumable, BuyPrice: 10, SellPrice: 2},
		{ID: "sharpening_stone", Name: "Sharpening Stone", Category: data.CategoryCatalyst,
			Enchant: &data.EnchantSpec{ID: "sharpen", Stat: "str", Bonus: 3}},
		{ID: "gate_key_e", Name: "E-Rank Gate Key", Category: data.CategoryKey, GateRank: "E"},
	})
	recipes := data.NewRecipeTable([]data.Recipe{
		{ID: "smelt_iron", Name: "Smelt Iron", Station: "forge", Profession: data.ProfessionSmithing,
			MinLevel: 1,
			Inputs:   []data.ItemQty{{ItemID: "iron_ore", Qty: 2}, {ItemID: "coal", Qty: 1}},
			Output:   data.ItemQty{ItemID: "iron_ingot", Qty: 1}},
		{ID: "forge_iron_sword", Name: "Forge Iron Sword", Station: "forge", Profession: data.ProfessionSmithing,
			MinLevel:  1,
			Inputs:    []data.ItemQty{{ItemID: "iron_ingot", Qty: 2}, {ItemID: "rusty_sword", Qty: 1}},
			Output:    data.ItemQty{ItemID: "iron_sword", Qty: 1},
			UpgradeOf: "rusty_sword"},
	})
	loot := data.NewLootTable([]data.MobLoot{
		{MobID: "giant_rat",
			AutoDrops:   []data.Drop{{ItemID: "rat_tail", Min: 1, Max: 1, Chance: 1_000_000}},
			CurrencyMin: 3, CurrencyMax: 3},
	})
	quests, err := data.NewQuestTable([]data.Quest{
		{ID: "rat_extermination", Name: "Rat Extermination", Type: data.QuestKill,
			OfferNpc: "Elder Rowan", TurnInNpc: "Elder Rowan",
			TargetMobName: "Giant Rat", Count: 3,
			RewardXP: 50, RewardCurrency: 25,
			RewardItems: []data.ItemQty{{ItemID: "health_potion", Qty: 1}}},
		{ID: "deeper_tunnels", Name: "Deeper Tunnels", Type: data.QuestKill,
			OfferNpc: "Elder Rowan", TurnInNpc: "Elder Rowan",
			TargetMobName: "Giant Rat", Count: 5,
			Prerequisite: "rat_extermination", RewardXP: 120},
		{ID: "meet_the_smith", Name: "Meet the Smith", Type: data.QuestTalk,
			OfferNpc: "Elder Rowan", TurnInNpc: "Elder Rowan",
			TargetNpcName: "Smith Berra", Count: 1, RewardXP: 10},
	})
	if err != nil {
		t.Fatalf("quest table: %v", err)
	}
	techniques := data.NewTechniqueTable([]data.Technique{
		{ID: "power_strike", Name: "Power Strike", MinLevel: 1, EssenceCost: 10,
			CooldownTicks: 4, Target: data.TargetSingle, Range: 1, Multiplier: 15, Damaging: true},
		{ID: "battle_shout", Name: "Battle Shout", MinLevel: 1, EssenceCost: 5,
			CooldownTicks: 2, Target: data.TargetSelf,
			Effect: &data.EffectSpec{Kind: "buff", DamagePct: 20, DurationTicks: 10}},
		{ID: "poison_dart", Name: "Poison Dart", MinLevel: 1, EssenceCost: 5,
			CooldownTicks: 2, Target: data.TargetSingle, Range: 5, Damaging: false,
			Effect: &data.EffectSpec{Kind: "dot", PerTick: 2, DurationTicks: 6}},
		{ID: "frenzy", Name: "Frenzy", MinLevel: 1, EssenceCost: 5,
			CooldownTicks: 2, Target: data.TargetSelf,
			Effect: &data.EffectSpec{Kind: "buff", DamagePct: 200, DurationTicks: 10}},
	})
	mobs := data.NewMobTable([]data.MobTemplate{
		{ID: "giant_rat", Name: "Giant Rat", Level: 2, HP: 30, Str: 6, Def: 2, XP: 30,
			DetectRadius: 8, StrikeRadius: 1, AttackCooldown: 2, RespawnTicks: 5},
		{ID: "cave_bear", Name: "Cave Bear", Level: 6, HP: 80, Str: 14, Def: 6, XP: 90,
			Aggressive: true, DetectRadius: 10, StrikeRadius: 1, AttackCooldown: 3},
		{ID: "tunnel_king", Name: "Tunnel King", Level: 8, HP: 200, Str: 20, Def: 8, XP: 400,
			Boss: true, Aggressive: true, DetectRadius: 12, StrikeRadius: 2, AttackCooldown: 3},
	})
	stats := data.NewStatTable(
		[]data.Race{{ID: "human", Name: "Human",
			Modifiers: data.RaceModifiers{Str: 1, Def: 1, HP: 1, Agi: 1, Int: 1, MP: 1, Faith: 1, Luck: 1}}},
		[]data.Class{{ID: "warrior", Name: "Warrior",
			Base: data.Stats{Str: 12, Def: 10, HP: 100, Agi: 8, Int: 5, MP: 30, Faith: 5, Luck: 5}}},
		0.02, 60)
	gates := data.NewGateRankTable([]data.GateRank{
		{Rank: "E", MinLevel: 1, KeyItemID: "gate_key_e",
			MobsMin: 3, MobsMax: 3, BossCount: 1, MobLevel: 5,
			HPScale: 1, XPScale: 1, DangerHPMult: 2, DangerXPMult: 2,
			MobPool: []string{"giant_rat"}, BossPool: []string{"tunnel_king"},
			Width: 32, Height: 32, SpawnX: 2, SpawnY: 2},
	})
	zones, err := data.NewZoneTable([]data.ZoneDef{{
		ID: "meadow", Name: "Meadow", Width: 64, Height: 64, Seed: 11, SpawnX: 8, SpawnY: 8,
	}})
	if err != nil {
		t.Fatalf("zone table: %v", err)
	}
	return &data.Catalog{
		Items: items, Recipes: recipes, Loot: loot, Quests: quests,
		Techniques: techniques, Mobs: mobs, Zones: zones, Stats: stats, Gates: gates,
	}
}

func testDeps(t *testing.T, lg ledger.Ledger) Deps {
	t.Helper()
	defaults := config.Defaults()
	return Deps{
		Log:           zap.NewNop(),
		Ledger:        lg,
		Catalog:       testCatalog(t),
		Game:          defaults.Game,
		Rates:         defaults.Rates,
		LedgerTimeout: time.Second,
	}
}

func testRuntime(t *testing.T, lg ledger.Ledger) *Runtime {
	t.Helper()
	deps := testDeps(t, lg)
	return NewRuntime(deps.Catalog.Zones.Get("meadow"), deps)
}

// addTestPlayer spawns a level-N warrior at a walkable point near (8,8).
func addTestPlayer(r *Runtime, wallet string, level int) *world.Entity {
	base := r.deps.Catalog.Stats.BaseStats("human", "warrior", level)
	p := &world.PlayerState{
		Wallet:  wallet,
		RaceID:  "human",
		ClassID: "warrior",
		Level:   level,
		XP:      data.XPForLevel(level),
		Base:    base,

		Equipment: make(map[data.Slot]*world.EquippedItem),
		Cooldowns: make(map[string]int64),

		AttackCooldown: 2,
		HomeZone:       r.id,
	}
	e := &world.Entity{
		ID: world.NextEntityID(), Type: world.TypePlayer,
		Name: "tester", Player: p,
	}
	p.RecomputeEffective(r.deps.Catalog.Items)
	p.HP, p.Essence, p.Alive = p.MaxHP, p.MaxEssence, true
	e.X, e.Y = r.nearestWalkable(8, 8)
	p.HomeX, p.HomeY = e.X, e.Y
	r.addEntity(e)
	return e
}

// addMobAt spawns a mob directly next to the given position.
func addMobAt(r *Runtime, templateID string, x, y int) *world.Entity {
	tpl := r.deps.Catalog.Mobs.Get(templateID)
	e := newMobEntity(tpl, x, y, 0, 1, 1, tpl.RespawnTicks)
	r.addEntity(e)
	return e
}

func addNodeAt(r *Runtime, kind, itemID string, tier, charges, x, y int) *world.Entity {
	e := newNodeEntity(&data.NodeDef{
		Kind: kind, Resource: itemID, ItemID: itemID, Tier: tier,
		X: x, Y: y, Charges: charges, RespawnTicks: 20,
	}, 20)
	r.addEntity(e)
	return e
}

func addNpcAt(r *Runtime, name, typ string, x, y int, stock, teaches []string) *world.Entity {
	e := newNpcEntity(&data.NpcDef{Name: name, Type: typ, X: x, Y: y, Sells: stock, Teaches: teaches})
	r.addEntity(e)
	return e
}

// stepUntilDone ticks the runtime until the async completion lands.
func stepUntilDone(t *testing.T, r *Runtime, ch <-chan error) error {
	t.Helper()
	for i := 0; i < 500; i++ {
		r.StepTick()
		select {
		case err := <-ch:
			return err
		default:
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatal("timed out waiting for async completion")
	return nil
}

func balance(t *testing.T, lg ledger.Ledger, wallet, token string) int64 {
	t.Helper()
	got, err := lg.GetItemBalance(context.Background(), wallet, token)
	if err != nil {
		t.Fatalf("balance %s/%s: %v", wallet, token, err)
	}
	return got
}
