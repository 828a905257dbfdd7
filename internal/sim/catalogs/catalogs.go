package catalogs

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"

	"idlebakery.ai/internal/sim/bignum"
)

// UpgradeType names the effect an upgrade applies once purchased.
type UpgradeType string

const (
	UpgradeSellMultiplier        UpgradeType = "sellMultiplier"
	UpgradeSpeedMultiplier       UpgradeType = "speedMultiplier"
	UpgradeAutomation            UpgradeType = "automation"
	UpgradeGlobalSellMultiplier  UpgradeType = "globalSellMultiplier"
	UpgradeGlobalSpeedMultiplier UpgradeType = "globalSpeedMultiplier"
)

func (t UpgradeType) Valid() bool {
	switch t {
	case UpgradeSellMultiplier, UpgradeSpeedMultiplier, UpgradeAutomation,
		UpgradeGlobalSellMultiplier, UpgradeGlobalSpeedMultiplier:
		return true
	}
	return false
}

// Catalog is the ordered, read-only list of pastry templates. Engines clone
// from it and never write to it.
type Catalog struct {
	Pastries []PastryDef
	Digest   string

	index map[int]int
}

type PastryDef struct {
	ID              int           `json:"id"`
	Name            string        `json:"name"`
	Image           string        `json:"image,omitempty"`
	Rank            int           `json:"rank,omitempty"`
	Level           int           `json:"level"`
	BaseBuildTimeMs int           `json:"base_build_time_ms"`
	BaseRevenue     bignum.Number `json:"base_revenue"`
	BaseCost        bignum.Number `json:"base_cost"`
	CostMultiplier  float64       `json:"cost_multiplier"`
	SellMultiplier  float64       `json:"sell_multiplier,omitempty"`
	SpeedMultiplier float64       `json:"speed_multiplier,omitempty"`
	Automation      bool          `json:"automation,omitempty"`
	Upgrades        []UpgradeDef  `json:"upgrades"`
}

type UpgradeDef struct {
	ID               int           `json:"id"`
	Name             string        `json:"name"`
	Description      string        `json:"description,omitempty"`
	Type             UpgradeType   `json:"type"`
	Value            float64       `json:"value"`
	Cost             bignum.Number `json:"cost"`
	LevelRequirement int           `json:"level_requirement"`
}

// Load reads <configDir>/pastries.json. A missing file yields Default().
func Load(configDir string) (*Catalog, error) {
	path := filepath.Join(configDir, "pastries.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes and validates a pastries.json payload.
func Parse(raw []byte) (*Catalog, error) {
	var defs []PastryDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("pastries.json: %w", err)
	}
	c, err := New(defs)
	if err != nil {
		return nil, fmt.Errorf("pastries.json: %w", err)
	}
	return c, nil
}

// New validates defs, fills multiplier defaults and indexes them.
func New(defs []PastryDef) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("empty catalog")
	}
	c := &Catalog{
		Pastries: make([]PastryDef, 0, len(defs)),
		index:    make(map[int]int, len(defs)),
	}
	for _, d := range defs {
		if d.ID <= 0 {
			return nil, fmt.Errorf("pastry %q: id must be positive", d.Name)
		}
		if _, dup := c.index[d.ID]; dup {
			return nil, fmt.Errorf("pastry %d: duplicate id", d.ID)
		}
		if d.BaseBuildTimeMs <= 0 {
			return nil, fmt.Errorf("pastry %d: base_build_time_ms must be positive", d.ID)
		}
		if d.CostMultiplier <= 1 {
			return nil, fmt.Errorf("pastry %d: cost_multiplier must be > 1", d.ID)
		}
		if d.Level < 0 {
			return nil, fmt.Errorf("pastry %d: negative level", d.ID)
		}
		if d.SellMultiplier == 0 {
			d.SellMultiplier = 1
		}
		if d.SpeedMultiplier == 0 {
			d.SpeedMultiplier = 1
		}
		d.BaseCost = bignum.New(d.BaseCost.Mantissa, d.BaseCost.Exponent)
		d.BaseRevenue = bignum.New(d.BaseRevenue.Mantissa, d.BaseRevenue.Exponent)
		if d.BaseCost.Sign() < 0 {
			return nil, fmt.Errorf("pastry %d: negative base_cost", d.ID)
		}
		if d.BaseRevenue.Sign() < 0 {
			return nil, fmt.Errorf("pastry %d: negative base_revenue", d.ID)
		}

		ups := make([]UpgradeDef, 0, len(d.Upgrades))
		seen := map[int]struct{}{}
		for _, u := range d.Upgrades {
			if _, dup := seen[u.ID]; dup {
				return nil, fmt.Errorf("pastry %d: duplicate upgrade id %d", d.ID, u.ID)
			}
			seen[u.ID] = struct{}{}
			if !u.Type.Valid() {
				return nil, fmt.Errorf("pastry %d upgrade %d: unknown type %q", d.ID, u.ID, u.Type)
			}
			if u.Type != UpgradeAutomation && u.Value <= 0 {
				return nil, fmt.Errorf("pastry %d upgrade %d: value must be positive", d.ID, u.ID)
			}
			u.Cost = bignum.New(u.Cost.Mantissa, u.Cost.Exponent)
			if u.Cost.Sign() < 0 {
				return nil, fmt.Errorf("pastry %d upgrade %d: negative cost", d.ID, u.ID)
			}
			ups = append(ups, u)
		}
		d.Upgrades = ups
		c.index[d.ID] = len(c.Pastries)
		c.Pastries = append(c.Pastries, d)
	}
	c.Digest = digest(c.Pastries)
	return c, nil
}

// Pastry returns the template for id.
func (c *Catalog) Pastry(id int) (PastryDef, bool) {
	if c == nil {
		return PastryDef{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return PastryDef{}, false
	}
	return c.Pastries[i], true
}

func digest(defs []PastryDef) string {
	b, _ := json.Marshal(defs)
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
