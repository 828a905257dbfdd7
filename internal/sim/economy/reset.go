package economy

import "idlebakery.ai/internal/sim/bignum"

// ClearSave wipes the persisted save and restarts the session from catalog
// defaults. Life lessons earned from the pre-reset levels (one per
// LevelsPerLifeLesson) are added to the running total and survive. It
// returns the lessons earned by this reset.
func (e *Engine) ClearSave() int {
	earned := e.TotalLevels() / e.cfg.LevelsPerLifeLesson
	if e.onReset != nil {
		e.onReset(e.Export(), e.tick, e.generation)
	}
	if e.persist != nil {
		e.persist.Clear()
	}

	e.resetState()
	e.lifeLessons += earned
	e.generation++

	e.writeAudit(AuditEntry{Action: AuditReset, Amount: bignum.FromInt(earned), Reason: "clear_save"})
	// Re-save so the accrued life lessons outlive the restart.
	e.commit()
	return earned
}
