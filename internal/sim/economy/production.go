package economy

import (
	"fmt"
	"math"
	"time"

	"idlebakery.ai/internal/sim/bignum"
)

const progressComplete = 100.0

// StartBuild begins a manual build. A build already in flight is left alone
// and reported as ErrBuildInFlight. An automated pastry counts as always in
// flight and is rejected with ErrAutomated; its progress is left untouched.
func (e *Engine) StartBuild(pastryID int) error {
	p := e.pastry(pastryID)
	if p == nil {
		return fmt.Errorf("start build %d: %w", pastryID, ErrUnknownPastry)
	}
	if _, ok := e.progress[p.ID]; !ok {
		return fmt.Errorf("start build %d: %w", pastryID, ErrNotBuildable)
	}
	if p.Level <= 0 {
		return fmt.Errorf("start build %d: %w", pastryID, ErrNotBuildable)
	}
	if p.Automation {
		return fmt.Errorf("start build %d: %w", pastryID, ErrAutomated)
	}
	if e.building[p.ID] {
		return fmt.Errorf("start build %d: %w", pastryID, ErrBuildInFlight)
	}
	e.building[p.ID] = true
	e.progress[p.ID] = 0
	return nil
}

// StopBuild cancels a manual build. Stopping an idle pastry is a no-op.
func (e *Engine) StopBuild(pastryID int) {
	if !e.building[pastryID] {
		return
	}
	delete(e.building, pastryID)
	if _, ok := e.progress[pastryID]; ok {
		e.progress[pastryID] = 0
	}
}

// Progress reports the build progress of a pastry in [0, 100).
func (e *Engine) Progress(pastryID int) float64 {
	return e.progress[pastryID]
}

// Building reports whether a manual build is in flight.
func (e *Engine) Building(pastryID int) bool {
	return e.building[pastryID]
}

// Tick advances every in-flight manual build, then runs the automation
// sweep, both in catalog order. It returns the number of completed builds.
func (e *Engine) Tick(dt time.Duration) int {
	e.tick++
	ms := float64(dt) / float64(time.Millisecond)
	if ms <= 0 || math.IsNaN(ms) {
		return 0
	}

	completed := 0
	for i := range e.pastries {
		p := &e.pastries[i]
		if !e.building[p.ID] {
			continue
		}
		if p.Automation {
			// Automation took over mid-build; the sweep owns progress now.
			delete(e.building, p.ID)
			continue
		}
		cycleMs := float64(p.BaseBuildTimeMs) / p.SpeedMultiplier
		if e.advance(p, ms, cycleMs) {
			delete(e.building, p.ID)
			completed++
		}
	}

	for i := range e.pastries {
		p := &e.pastries[i]
		if !p.Automation {
			continue
		}
		cycleMs := float64(p.BaseBuildTimeMs) / (p.SpeedMultiplier * e.globalSpeed)
		if e.advance(p, ms, cycleMs) {
			completed++
		}
	}

	if completed > 0 {
		e.commit()
	}
	return completed
}

// advance moves p's progress forward by one step and credits earnings when
// the cycle completes. Overshoot past 100 is discarded.
func (e *Engine) advance(p *Pastry, ms, cycleMs float64) bool {
	cur, ok := e.progress[p.ID]
	if !ok {
		return false
	}
	if cycleMs <= 0 || math.IsNaN(cycleMs) || math.IsInf(cycleMs, 0) {
		return false
	}
	inc := ms * progressComplete / cycleMs
	if inc <= 0 || math.IsNaN(inc) {
		return false
	}
	next := cur + inc
	if next < progressComplete {
		e.progress[p.ID] = next
		return false
	}
	earned := e.Earnings(*p)
	e.money = bignum.Add(e.money, earned)
	e.progress[p.ID] = 0
	e.writeAudit(AuditEntry{Action: AuditBuild, PastryID: p.ID, Level: p.Level, Amount: earned})
	return true
}
