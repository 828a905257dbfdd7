package economy

import (
	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/catalogs"
)

// StateView is a read-only copy of everything the presentation layer shows.
type StateView struct {
	Tick                  uint64        `json:"tick"`
	Generation            uint64        `json:"generation"`
	Money                 bignum.Number `json:"money"`
	MoneyDisplay          string        `json:"money_display"`
	LifeLessons           int           `json:"life_lessons"`
	GlobalSellMultiplier  float64       `json:"global_sell_multiplier"`
	GlobalSpeedMultiplier float64       `json:"global_speed_multiplier"`
	TotalLevels           int           `json:"total_levels"`
	Pastries              []PastryView  `json:"pastries"`
}

type PastryView struct {
	ID              int           `json:"id"`
	Name            string        `json:"name"`
	Level           int           `json:"level"`
	Progress        float64       `json:"progress"`
	Building        bool          `json:"building"`
	Automation      bool          `json:"automation"`
	SellMultiplier  float64       `json:"sell_multiplier"`
	SpeedMultiplier float64       `json:"speed_multiplier"`
	BuildTimeMs     float64       `json:"build_time_ms"`
	NextCost        bignum.Number `json:"next_cost"`
	NextCostDisplay string        `json:"next_cost_display"`
	CanLevelUp      bool          `json:"can_level_up"`
	Earnings        bignum.Number `json:"earnings"`
	EarningsDisplay string        `json:"earnings_display"`
	Upgrades        []UpgradeView `json:"upgrades"`
}

type UpgradeView struct {
	ID               int                  `json:"id"`
	Name             string               `json:"name"`
	Description      string               `json:"description,omitempty"`
	Type             catalogs.UpgradeType `json:"type"`
	Value            float64              `json:"value"`
	Cost             bignum.Number        `json:"cost"`
	CostDisplay      string               `json:"cost_display"`
	LevelRequirement int                  `json:"level_requirement"`
	Purchased        bool                 `json:"purchased"`
	Unlocked         bool                 `json:"unlocked"`
	Affordable       bool                 `json:"affordable"`
}

func (e *Engine) Snapshot() StateView {
	v := StateView{
		Tick:                  e.tick,
		Generation:            e.generation,
		Money:                 e.money,
		MoneyDisplay:          e.money.String(),
		LifeLessons:           e.lifeLessons,
		GlobalSellMultiplier:  e.globalSell,
		GlobalSpeedMultiplier: e.globalSpeed,
		TotalLevels:           e.TotalLevels(),
		Pastries:              make([]PastryView, 0, len(e.pastries)),
	}
	for i := range e.pastries {
		v.Pastries = append(v.Pastries, e.pastryView(&e.pastries[i]))
	}
	return v
}

func (e *Engine) pastryView(p *Pastry) PastryView {
	cost := NextCost(*p)
	earn := e.Earnings(*p)
	speed := p.SpeedMultiplier
	if p.Automation {
		speed *= e.globalSpeed
	}
	pv := PastryView{
		ID:              p.ID,
		Name:            p.Name,
		Level:           p.Level,
		Progress:        e.progress[p.ID],
		Building:        e.building[p.ID],
		Automation:      p.Automation,
		SellMultiplier:  p.SellMultiplier,
		SpeedMultiplier: p.SpeedMultiplier,
		BuildTimeMs:     float64(p.BaseBuildTimeMs) / speed,
		NextCost:        cost,
		NextCostDisplay: cost.String(),
		CanLevelUp:      e.CanAfford(cost),
		Earnings:        earn,
		EarningsDisplay: earn.String(),
		Upgrades:        make([]UpgradeView, 0, len(p.Upgrades)),
	}
	for _, u := range p.Upgrades {
		unlocked := p.Level >= u.LevelRequirement
		pv.Upgrades = append(pv.Upgrades, UpgradeView{
			ID:               u.ID,
			Name:             u.Name,
			Description:      u.Description,
			Type:             u.Type,
			Value:            u.Value,
			Cost:             u.Cost,
			CostDisplay:      u.Cost.String(),
			LevelRequirement: u.LevelRequirement,
			Purchased:        u.Purchased,
			Unlocked:         unlocked,
			Affordable:       !u.Purchased && unlocked && e.CanAfford(u.Cost),
		})
	}
	return pv
}
