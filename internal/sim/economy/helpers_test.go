package economy

import (
	"testing"

	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/catalogs"
)

func testCatalog(t *testing.T) *catalogs.Catalog {
	t.Helper()
	c, err := catalogs.New([]catalogs.PastryDef{
		{
			ID: 1, Name: "Bread", Level: 1, BaseBuildTimeMs: 1000,
			BaseRevenue: bignum.New(1, 0), BaseCost: bignum.New(1, 1), CostMultiplier: 2,
			Upgrades: []catalogs.UpgradeDef{
				{ID: 11, Type: catalogs.UpgradeSellMultiplier, Value: 2, Cost: bignum.New(1, 1), LevelRequirement: 1},
				{ID: 12, Type: catalogs.UpgradeSpeedMultiplier, Value: 2, Cost: bignum.New(1, 1), LevelRequirement: 1},
				{ID: 13, Type: catalogs.UpgradeAutomation, Value: 1, Cost: bignum.New(1, 1), LevelRequirement: 2},
				{ID: 14, Type: catalogs.UpgradeGlobalSellMultiplier, Value: 3, Cost: bignum.New(1, 1)},
				{ID: 15, Type: catalogs.UpgradeGlobalSpeedMultiplier, Value: 2, Cost: bignum.New(1, 1)},
			},
		},
		{
			ID: 2, Name: "Cake", BaseBuildTimeMs: 2000,
			BaseRevenue: bignum.New(5, 0), BaseCost: bignum.New(1, 2), CostMultiplier: 1.5,
			Upgrades: []catalogs.UpgradeDef{
				{ID: 21, Type: catalogs.UpgradeSellMultiplier, Value: 5, Cost: bignum.New(1, 0), LevelRequirement: 1},
			},
		},
		{
			ID: 3, Name: "Pie", BaseBuildTimeMs: 4000,
			BaseRevenue: bignum.New(2, 1), BaseCost: bignum.New(1, 3), CostMultiplier: 1.2,
		},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(DefaultConfig(), testCatalog(t), nil)
}

func rich(e *Engine) {
	e.money = bignum.New(1, 40)
}

func setLevel(t *testing.T, e *Engine, id, level int) {
	t.Helper()
	p := e.pastry(id)
	if p == nil {
		t.Fatalf("missing pastry %d", id)
	}
	p.Level = level
}

type fakePersistence struct {
	saves  int
	clears int
	last   SaveState
}

func (f *fakePersistence) Save(s SaveState) {
	f.saves++
	f.last = s
}

func (f *fakePersistence) Clear() { f.clears++ }

type memAudit struct{ entries []AuditEntry }

func (m *memAudit) WriteAudit(a AuditEntry) error {
	m.entries = append(m.entries, a)
	return nil
}
