package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_IsValidAndOrdered(t *testing.T) {
	c := Default()
	if len(c.Pastries) == 0 {
		t.Fatalf("expected built-in pastries")
	}
	for i, p := range c.Pastries {
		if p.ID != i+1 {
			t.Fatalf("expected catalog order by id, got id %d at %d", p.ID, i)
		}
	}
	bread, ok := c.Pastry(StarterPastryID)
	if !ok || bread.Level != 1 {
		t.Fatalf("starter pastry should exist at level 1: %+v", bread)
	}
	if len(bread.Upgrades) != 5 || bread.Upgrades[0].ID != 101 || bread.Upgrades[4].Type != UpgradeAutomation {
		t.Fatalf("unexpected bread upgrades: %+v", bread.Upgrades)
	}
	if c.Digest == "" {
		t.Fatalf("expected digest")
	}
}

func TestDefault_CoversEveryUpgradeType(t *testing.T) {
	seen := map[UpgradeType]bool{}
	for _, p := range Default().Pastries {
		for _, u := range p.Upgrades {
			seen[u.Type] = true
		}
	}
	for _, ty := range []UpgradeType{UpgradeSellMultiplier, UpgradeSpeedMultiplier, UpgradeAutomation, UpgradeGlobalSellMultiplier, UpgradeGlobalSpeedMultiplier} {
		if !seen[ty] {
			t.Fatalf("built-in catalog missing upgrade type %s", ty)
		}
	}
}

func TestLoad_MissingFileFallsBackToDefault(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Digest != Default().Digest {
		t.Fatalf("expected built-in catalog")
	}
}

func TestLoad_FileNormalizesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	raw := `[
	  {"id":7,"name":"Bagel","level":0,"base_build_time_ms":500,
	   "base_revenue":{"mantissa":25,"exponent":0},
	   "base_cost":{"mantissa":1,"exponent":1},
	   "cost_multiplier":1.1,
	   "upgrades":[{"id":1,"name":"Seeds","type":"sellMultiplier","value":2,"cost":{"mantissa":3,"exponent":1},"level_requirement":1}]}
	]`
	if err := os.WriteFile(filepath.Join(dir, "pastries.json"), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, ok := c.Pastry(7)
	if !ok {
		t.Fatalf("missing pastry 7")
	}
	if p.BaseRevenue.Mantissa != 2.5 || p.BaseRevenue.Exponent != 1 {
		t.Fatalf("expected normalized revenue, got %+v", p.BaseRevenue)
	}
	if p.SellMultiplier != 1 || p.SpeedMultiplier != 1 {
		t.Fatalf("expected default multipliers, got %v %v", p.SellMultiplier, p.SpeedMultiplier)
	}
}

func TestNew_RejectsInvalid(t *testing.T) {
	base := func() PastryDef {
		return PastryDef{ID: 1, Name: "x", BaseBuildTimeMs: 10, CostMultiplier: 1.1, BaseCost: n(1, 0), BaseRevenue: n(1, 0)}
	}
	cases := map[string]func() []PastryDef{
		"duplicate id": func() []PastryDef { return []PastryDef{base(), base()} },
		"zero build time": func() []PastryDef {
			p := base()
			p.BaseBuildTimeMs = 0
			return []PastryDef{p}
		},
		"flat cost": func() []PastryDef {
			p := base()
			p.CostMultiplier = 1
			return []PastryDef{p}
		},
		"negative base cost": func() []PastryDef {
			p := base()
			p.BaseCost = n(-5, 1)
			return []PastryDef{p}
		},
		"negative base revenue": func() []PastryDef {
			p := base()
			p.BaseRevenue = n(-1, 0)
			return []PastryDef{p}
		},
		"negative upgrade cost": func() []PastryDef {
			p := base()
			p.Upgrades = []UpgradeDef{{ID: 1, Type: UpgradeSellMultiplier, Value: 2, Cost: n(-1, 2)}}
			return []PastryDef{p}
		},
		"unknown upgrade type": func() []PastryDef {
			p := base()
			p.Upgrades = []UpgradeDef{{ID: 1, Type: "bogus", Value: 2}}
			return []PastryDef{p}
		},
		"duplicate upgrade": func() []PastryDef {
			p := base()
			p.Upgrades = []UpgradeDef{{ID: 1, Type: UpgradeSellMultiplier, Value: 2}, {ID: 1, Type: UpgradeSellMultiplier, Value: 2}}
			return []PastryDef{p}
		},
	}
	for name, defs := range cases {
		if _, err := New(defs()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := New(nil); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty catalog error, got %v", err)
	}
}

func TestLoad_ShippedConfigMatchesDefault(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load shipped catalog: %v", err)
	}
	if c.Digest != Default().Digest {
		t.Fatalf("configs/pastries.json drifted from the built-in catalog")
	}
}
