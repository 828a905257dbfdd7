package economy

import (
	"errors"

	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/catalogs"
	"idlebakery.ai/internal/sim/tuning"
)

var (
	ErrUnknownPastry     = errors.New("unknown pastry")
	ErrUnknownUpgrade    = errors.New("unknown upgrade")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLevelRequirement  = errors.New("level requirement not met")
	ErrAlreadyPurchased  = errors.New("upgrade already purchased")
	ErrBuildInFlight     = errors.New("build already in progress")
	ErrNotBuildable      = errors.New("pastry cannot be built at level 0")
	ErrAutomated         = errors.New("pastry is automated")
)

// Config holds the economy constants the engine needs from tuning.
type Config struct {
	StarterPastryID     int
	StarterLevel        int
	LevelsPerLifeLesson int
	LifeLessonBonus     float64
}

func DefaultConfig() Config {
	return ConfigFromTuning(tuning.Defaults())
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		StarterPastryID:     t.StarterPastryID,
		StarterLevel:        t.StarterLevel,
		LevelsPerLifeLesson: t.LevelsPerLifeLesson,
		LifeLessonBonus:     t.LifeLessonBonus,
	}
}

// Pastry is the live, per-session copy of a catalog template.
type Pastry struct {
	ID              int
	Name            string
	Level           int
	BaseBuildTimeMs int
	BaseRevenue     bignum.Number
	BaseCost        bignum.Number
	CostMultiplier  float64
	SellMultiplier  float64
	SpeedMultiplier float64
	Automation      bool
	Upgrades        []Upgrade
}

type Upgrade struct {
	ID               int
	Name             string
	Description      string
	Type             catalogs.UpgradeType
	Value            float64
	Cost             bignum.Number
	LevelRequirement int
	Purchased        bool
}

func clonePastry(d catalogs.PastryDef) Pastry {
	p := Pastry{
		ID:              d.ID,
		Name:            d.Name,
		Level:           d.Level,
		BaseBuildTimeMs: d.BaseBuildTimeMs,
		BaseRevenue:     d.BaseRevenue,
		BaseCost:        d.BaseCost,
		CostMultiplier:  d.CostMultiplier,
		SellMultiplier:  d.SellMultiplier,
		SpeedMultiplier: d.SpeedMultiplier,
		Automation:      d.Automation,
		Upgrades:        make([]Upgrade, len(d.Upgrades)),
	}
	for i, u := range d.Upgrades {
		p.Upgrades[i] = Upgrade{
			ID:               u.ID,
			Name:             u.Name,
			Description:      u.Description,
			Type:             u.Type,
			Value:            u.Value,
			Cost:             u.Cost,
			LevelRequirement: u.LevelRequirement,
		}
	}
	return p
}

func (p *Pastry) upgrade(id int) *Upgrade {
	for i := range p.Upgrades {
		if p.Upgrades[i].ID == id {
			return &p.Upgrades[i]
		}
	}
	return nil
}

// AuditEntry records one committed economy change.
type AuditEntry struct {
	Tick      uint64        `json:"tick"`
	Action    string        `json:"action"`
	PastryID  int           `json:"pastry_id,omitempty"`
	UpgradeID int           `json:"upgrade_id,omitempty"`
	Level     int           `json:"level,omitempty"`
	Amount    bignum.Number `json:"amount"`
	Money     bignum.Number `json:"money"`
	Reason    string        `json:"reason,omitempty"`
}

const (
	AuditLevelUp    = "LEVEL_UP"
	AuditBuyUpgrade = "BUY_UPGRADE"
	AuditBuild      = "BUILD_COMPLETE"
	AuditEarn       = "EARN"
	AuditReset      = "RESET"
	AuditRestore    = "RESTORE"
)

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// Persistence receives the persisted subset after every committed change
// and is told to forget it on reset. Implementations must not panic.
type Persistence interface {
	Save(state SaveState)
	Clear()
}
