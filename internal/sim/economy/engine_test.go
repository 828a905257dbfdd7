package economy

import (
	"errors"
	"testing"

	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/catalogs"
)

func TestNew_ClonesCatalog(t *testing.T) {
	cat := testCatalog(t)
	e := New(DefaultConfig(), cat, nil)
	rich(e)
	if err := e.BuyUpgrade(1, 11); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := e.LevelUp(1); err != nil {
		t.Fatalf("level up: %v", err)
	}
	def, _ := cat.Pastry(1)
	if def.Level != 1 || def.SellMultiplier != 1 {
		t.Fatalf("catalog template mutated: %+v", def)
	}
	if p, _ := e.Pastry(1); p.Level != 2 || p.SellMultiplier != 2 {
		t.Fatalf("live pastry not updated: %+v", p)
	}
}

func TestLevelUp_Affordable(t *testing.T) {
	e := newTestEngine(t)
	setLevel(t, e, 1, 0)
	e.money = bignum.New(5, 1)

	if err := e.LevelUp(1); err != nil {
		t.Fatalf("level up: %v", err)
	}
	if got := e.Money(); bignum.Compare(got, bignum.New(4, 1)) != 0 {
		t.Fatalf("expected 40 left, got %v", got)
	}
	if p, _ := e.Pastry(1); p.Level != 1 {
		t.Fatalf("expected level 1, got %d", p.Level)
	}
}

func TestLevelUp_InsufficientFundsIsNoop(t *testing.T) {
	e := newTestEngine(t)
	setLevel(t, e, 1, 0)
	e.money = bignum.New(5, 0)
	persist := &fakePersistence{}
	e.SetPersistence(persist)

	err := e.LevelUp(1)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := e.Money(); bignum.Compare(got, bignum.New(5, 0)) != 0 {
		t.Fatalf("money changed: %v", got)
	}
	if p, _ := e.Pastry(1); p.Level != 0 {
		t.Fatalf("level changed: %d", p.Level)
	}
	if persist.saves != 0 {
		t.Fatalf("failed command should not commit")
	}
}

func TestLevelUp_UnknownPastry(t *testing.T) {
	e := newTestEngine(t)
	if err := e.LevelUp(99); !errors.Is(err, ErrUnknownPastry) {
		t.Fatalf("expected ErrUnknownPastry, got %v", err)
	}
}

func TestNextCost_GrowsExponentially(t *testing.T) {
	e := newTestEngine(t)
	setLevel(t, e, 1, 3)
	p, _ := e.Pastry(1)
	if got := NextCost(p); bignum.Compare(got, bignum.New(8, 1)) != 0 { // 10 * 2^3
		t.Fatalf("expected 80, got %+v", got)
	}
	p.Level = 1 << 20
	if got := NextCost(p); got.Exponent != bignum.MaxExponent {
		t.Fatalf("expected saturation at the cap, got %+v", got)
	}
}

func TestEarnings(t *testing.T) {
	e := newTestEngine(t)
	setLevel(t, e, 1, 3)
	e.pastry(1).SellMultiplier = 2
	p, _ := e.Pastry(1)
	if got := e.Earnings(p); bignum.Compare(got, bignum.New(6, 0)) != 0 {
		t.Fatalf("expected 6, got %+v", got)
	}

	e.lifeLessons = 50
	e.globalSell = 2
	if got := e.Earnings(p); got.Float64() < 17.99 || got.Float64() > 18.01 { // 6 * 2 * 1.5
		t.Fatalf("expected 18, got %+v", got)
	}

	zero, _ := e.Pastry(2)
	if got := e.Earnings(zero); !got.IsZero() {
		t.Fatalf("level 0 earns nothing, got %+v", got)
	}
}

func TestSpendMoney_NeverOverdraws(t *testing.T) {
	e := newTestEngine(t)
	e.money = bignum.New(1, 1)
	if e.SpendMoney(bignum.New(1.1, 1)) {
		t.Fatalf("spend above balance should fail")
	}
	if !e.SpendMoney(bignum.New(1, 1)) {
		t.Fatalf("exact spend should succeed")
	}
	if !e.Money().IsZero() {
		t.Fatalf("expected zero balance, got %+v", e.Money())
	}
	if e.SpendMoney(bignum.New(1, 0)) {
		t.Fatalf("spend from zero should fail")
	}
	if e.Money().Sign() < 0 {
		t.Fatalf("balance went negative")
	}
}

func TestAddMoney_Commits(t *testing.T) {
	e := newTestEngine(t)
	persist := &fakePersistence{}
	e.SetPersistence(persist)
	e.AddMoney(bignum.New(2, 3))
	if persist.saves != 1 || bignum.Compare(persist.last.Money, bignum.New(2, 3)) != 0 {
		t.Fatalf("expected one commit with new balance, got %+v", persist)
	}
}

func TestBuyUpgrade_AppliesEachEffectOnce(t *testing.T) {
	e := newTestEngine(t)
	rich(e)
	setLevel(t, e, 1, 5)
	for _, id := range []int{11, 12, 13, 14, 15} {
		if err := e.BuyUpgrade(1, id); err != nil {
			t.Fatalf("buy %d: %v", id, err)
		}
	}
	p, _ := e.Pastry(1)
	if p.SellMultiplier != 2 || p.SpeedMultiplier != 2 || !p.Automation {
		t.Fatalf("pastry effects not applied: %+v", p)
	}
	if e.GlobalSellMultiplier() != 3 || e.GlobalSpeedMultiplier() != 2 {
		t.Fatalf("global effects not applied: %v %v", e.GlobalSellMultiplier(), e.GlobalSpeedMultiplier())
	}

	before := e.Money()
	if err := e.BuyUpgrade(1, 11); !errors.Is(err, ErrAlreadyPurchased) {
		t.Fatalf("expected ErrAlreadyPurchased, got %v", err)
	}
	if p, _ := e.Pastry(1); p.SellMultiplier != 2 {
		t.Fatalf("second purchase re-applied effect: %v", p.SellMultiplier)
	}
	if bignum.Compare(before, e.Money()) != 0 {
		t.Fatalf("second purchase charged money")
	}
}

func TestBuyUpgrade_Preconditions(t *testing.T) {
	e := newTestEngine(t)
	rich(e)

	if err := e.BuyUpgrade(1, 13); !errors.Is(err, ErrLevelRequirement) {
		t.Fatalf("expected ErrLevelRequirement, got %v", err)
	}
	if err := e.BuyUpgrade(1, 999); !errors.Is(err, ErrUnknownUpgrade) {
		t.Fatalf("expected ErrUnknownUpgrade, got %v", err)
	}
	if err := e.BuyUpgrade(42, 11); !errors.Is(err, ErrUnknownPastry) {
		t.Fatalf("expected ErrUnknownPastry, got %v", err)
	}

	e.money = bignum.New(9, 0)
	if err := e.BuyUpgrade(1, 11); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	p, _ := e.Pastry(1)
	if p.Upgrades[0].Purchased || p.SellMultiplier != 1 {
		t.Fatalf("failed purchase mutated state: %+v", p)
	}
	if bignum.Compare(e.Money(), bignum.New(9, 0)) != 0 {
		t.Fatalf("failed purchase charged money")
	}
}

func TestAudit_RecordsCommittedChanges(t *testing.T) {
	e := newTestEngine(t)
	a := &memAudit{}
	e.SetAuditLogger(a)
	rich(e)
	_ = e.LevelUp(1)
	_ = e.BuyUpgrade(1, 11)
	_ = e.BuyUpgrade(1, 11)
	if len(a.entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(a.entries))
	}
	if a.entries[0].Action != AuditLevelUp || a.entries[1].Action != AuditBuyUpgrade || a.entries[1].UpgradeID != 11 {
		t.Fatalf("unexpected audit entries: %+v", a.entries)
	}
}

func TestSnapshot_Observations(t *testing.T) {
	e := newTestEngine(t)
	e.money = bignum.New(2, 1)
	v := e.Snapshot()
	if len(v.Pastries) != 3 || v.TotalLevels != 1 || v.MoneyDisplay != "20.00" {
		t.Fatalf("unexpected view: %+v", v)
	}
	bread := v.Pastries[0]
	if !bread.CanLevelUp || bread.NextCostDisplay != "20.00" {
		t.Fatalf("unexpected bread view: %+v", bread)
	}
	if !bread.Upgrades[0].Affordable || bread.Upgrades[2].Unlocked {
		t.Fatalf("unexpected upgrade flags: %+v", bread.Upgrades)
	}
	if v.Pastries[1].Upgrades[0].Type != catalogs.UpgradeSellMultiplier {
		t.Fatalf("unexpected cake upgrade: %+v", v.Pastries[1].Upgrades[0])
	}
}
