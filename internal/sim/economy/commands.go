package economy

import (
	"fmt"

	"idlebakery.ai/internal/sim/catalogs"
)

// LevelUp pays the next-level cost of a pastry and raises its level by one.
// On any error nothing changes.
func (e *Engine) LevelUp(pastryID int) error {
	p := e.pastry(pastryID)
	if p == nil {
		return fmt.Errorf("level up %d: %w", pastryID, ErrUnknownPastry)
	}
	cost := NextCost(*p)
	if !e.spend(cost) {
		return fmt.Errorf("level up %d: %w", pastryID, ErrInsufficientFunds)
	}
	p.Level++
	e.writeAudit(AuditEntry{Action: AuditLevelUp, PastryID: p.ID, Level: p.Level, Amount: cost})
	e.commit()
	return nil
}

// BuyUpgrade purchases an upgrade and applies its effect exactly once.
// Purchase is all-or-nothing.
func (e *Engine) BuyUpgrade(pastryID, upgradeID int) error {
	p := e.pastry(pastryID)
	if p == nil {
		return fmt.Errorf("buy upgrade %d/%d: %w", pastryID, upgradeID, ErrUnknownPastry)
	}
	u := p.upgrade(upgradeID)
	if u == nil {
		return fmt.Errorf("buy upgrade %d/%d: %w", pastryID, upgradeID, ErrUnknownUpgrade)
	}
	if u.Purchased {
		return fmt.Errorf("buy upgrade %d/%d: %w", pastryID, upgradeID, ErrAlreadyPurchased)
	}
	if p.Level < u.LevelRequirement {
		return fmt.Errorf("buy upgrade %d/%d: level %d < %d: %w", pastryID, upgradeID, p.Level, u.LevelRequirement, ErrLevelRequirement)
	}
	if !e.spend(u.Cost) {
		return fmt.Errorf("buy upgrade %d/%d: %w", pastryID, upgradeID, ErrInsufficientFunds)
	}
	u.Purchased = true
	e.applyUpgrade(p, *u)
	e.writeAudit(AuditEntry{Action: AuditBuyUpgrade, PastryID: p.ID, UpgradeID: u.ID, Level: p.Level, Amount: u.Cost})
	e.commit()
	return nil
}

// applyUpgrade is the single place upgrade effects are composed, both at
// purchase time and when a save is restored.
func (e *Engine) applyUpgrade(p *Pastry, u Upgrade) {
	switch u.Type {
	case catalogs.UpgradeSellMultiplier:
		p.SellMultiplier *= u.Value
	case catalogs.UpgradeSpeedMultiplier:
		p.SpeedMultiplier *= u.Value
	case catalogs.UpgradeAutomation:
		p.Automation = true
	case catalogs.UpgradeGlobalSellMultiplier:
		e.globalSell *= u.Value
	case catalogs.UpgradeGlobalSpeedMultiplier:
		e.globalSpeed *= u.Value
	default:
		e.log.Printf("upgrade %d on pastry %d: unknown type %q ignored", u.ID, p.ID, u.Type)
	}
}

// reapplyUpgrades resets every derived multiplier to its template value and
// composes purchased upgrades back on in catalog order.
func (e *Engine) reapplyUpgrades() {
	e.globalSell = 1
	e.globalSpeed = 1
	for i := range e.pastries {
		p := &e.pastries[i]
		def := e.cat.Pastries[i]
		p.SellMultiplier = def.SellMultiplier
		p.SpeedMultiplier = def.SpeedMultiplier
		p.Automation = def.Automation
	}
	for i := range e.pastries {
		p := &e.pastries[i]
		for _, u := range p.Upgrades {
			if u.Purchased {
				e.applyUpgrade(p, u)
			}
		}
	}
}
