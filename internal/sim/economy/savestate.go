package economy

import (
	"idlebakery.ai/internal/sim/bignum"
)

// SaveState is the persisted subset of the economy. Progress and template
// fields are never part of it.
type SaveState struct {
	Money                 bignum.Number `json:"money"`
	LifeLessons           int           `json:"lifeLessons"`
	GlobalSellMultiplier  float64       `json:"globalSellMultiplier"`
	GlobalSpeedMultiplier float64       `json:"globalSpeedMultiplier"`
	Pastries              []SavedPastry `json:"pastries"`
}

type SavedPastry struct {
	ID       int            `json:"id"`
	Level    int            `json:"level"`
	Upgrades []SavedUpgrade `json:"upgrades"`
}

type SavedUpgrade struct {
	ID        int  `json:"id"`
	Purchased bool `json:"purchased"`
}

// Export captures the persisted subset of the current state.
func (e *Engine) Export() SaveState {
	s := SaveState{
		Money:                 e.money,
		LifeLessons:           e.lifeLessons,
		GlobalSellMultiplier:  e.globalSell,
		GlobalSpeedMultiplier: e.globalSpeed,
		Pastries:              make([]SavedPastry, len(e.pastries)),
	}
	for i := range e.pastries {
		p := &e.pastries[i]
		sp := SavedPastry{ID: p.ID, Level: p.Level, Upgrades: make([]SavedUpgrade, len(p.Upgrades))}
		for j, u := range p.Upgrades {
			sp.Upgrades[j] = SavedUpgrade{ID: u.ID, Purchased: u.Purchased}
		}
		s.Pastries[i] = sp
	}
	return s
}

// Restore overlays a decoded save. Unknown pastry and upgrade ids are
// ignored, pastries absent from the save keep their current values, and the
// saved global multipliers are not trusted: every multiplier is recomposed
// from the purchased set. In-flight builds and progress are cleared.
func (e *Engine) Restore(s SaveState) {
	e.money = bignum.New(s.Money.Mantissa, s.Money.Exponent)
	if s.LifeLessons >= 0 {
		e.lifeLessons = s.LifeLessons
	}
	for _, sp := range s.Pastries {
		p := e.pastry(sp.ID)
		if p == nil {
			e.log.Printf("restore: unknown pastry %d ignored", sp.ID)
			continue
		}
		if sp.Level >= 0 {
			p.Level = sp.Level
		}
		for _, su := range sp.Upgrades {
			u := p.upgrade(su.ID)
			if u == nil {
				e.log.Printf("restore: unknown upgrade %d on pastry %d ignored", su.ID, sp.ID)
				continue
			}
			u.Purchased = su.Purchased
		}
	}
	e.reapplyUpgrades()
	e.building = map[int]bool{}
	for id := range e.progress {
		e.progress[id] = 0
	}
	e.writeAudit(AuditEntry{Action: AuditRestore})
}
