package economy

import (
	"io"
	"log"
	"math"

	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/catalogs"
)

// Engine owns the whole economy state of one session. It is not safe for
// concurrent use; the scheduler loop serializes every call onto one goroutine.
type Engine struct {
	cfg Config
	cat *catalogs.Catalog
	log *log.Logger

	audit   AuditLogger
	persist Persistence
	onReset ResetHook

	money       bignum.Number
	pastries    []Pastry
	index       map[int]int
	lifeLessons int
	globalSell  float64
	globalSpeed float64

	// Ephemeral, never persisted.
	progress map[int]float64
	building map[int]bool

	tick       uint64
	generation uint64
}

func New(cfg Config, cat *catalogs.Catalog, logger *log.Logger) *Engine {
	if cat == nil {
		cat = catalogs.Default()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if cfg.LevelsPerLifeLesson <= 0 {
		cfg.LevelsPerLifeLesson = DefaultConfig().LevelsPerLifeLesson
	}
	e := &Engine{cfg: cfg, cat: cat, log: logger}
	e.resetState()
	for i := range e.pastries {
		e.pastries[i].Level = cat.Pastries[i].Level
	}
	return e
}

// resetState rebuilds the in-memory session from the catalog. Levels follow
// the starter rule; lifeLessons are left alone.
func (e *Engine) resetState() {
	e.money = bignum.Zero()
	e.globalSell = 1
	e.globalSpeed = 1
	e.pastries = make([]Pastry, len(e.cat.Pastries))
	e.index = make(map[int]int, len(e.cat.Pastries))
	e.progress = make(map[int]float64, len(e.cat.Pastries))
	e.building = map[int]bool{}
	for i, d := range e.cat.Pastries {
		p := clonePastry(d)
		p.Level = 0
		if p.ID == e.cfg.StarterPastryID {
			p.Level = e.cfg.StarterLevel
		}
		e.pastries[i] = p
		e.index[p.ID] = i
		e.progress[p.ID] = 0
	}
}

func (e *Engine) SetAuditLogger(a AuditLogger) { e.audit = a }

func (e *Engine) SetPersistence(p Persistence) { e.persist = p }

// ResetHook receives the final state of a generation just before ClearSave
// wipes it.
type ResetHook func(final SaveState, tick, generation uint64)

func (e *Engine) SetResetHook(h ResetHook) { e.onReset = h }

func (e *Engine) Catalog() *catalogs.Catalog { return e.cat }

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Money() bignum.Number { return e.money }

func (e *Engine) LifeLessons() int { return e.lifeLessons }

func (e *Engine) GlobalSellMultiplier() float64 { return e.globalSell }

func (e *Engine) GlobalSpeedMultiplier() float64 { return e.globalSpeed }

// CurrentTick counts Tick calls since construction.
func (e *Engine) CurrentTick() uint64 { return e.tick }

// Generation increments on every reset; observers use it to drop stale views.
func (e *Engine) Generation() uint64 { return e.generation }

func (e *Engine) pastry(id int) *Pastry {
	i, ok := e.index[id]
	if !ok {
		return nil
	}
	return &e.pastries[i]
}

// Pastry returns a deep copy of the live pastry.
func (e *Engine) Pastry(id int) (Pastry, bool) {
	p := e.pastry(id)
	if p == nil {
		return Pastry{}, false
	}
	cp := *p
	cp.Upgrades = append([]Upgrade(nil), p.Upgrades...)
	return cp, true
}

func (e *Engine) PastryIDs() []int {
	ids := make([]int, len(e.pastries))
	for i := range e.pastries {
		ids[i] = e.pastries[i].ID
	}
	return ids
}

func (e *Engine) TotalLevels() int {
	total := 0
	for i := range e.pastries {
		total += e.pastries[i].Level
	}
	return total
}

// AutomatedCount reports how many pastries the automation sweep drives.
func (e *Engine) AutomatedCount() int {
	n := 0
	for i := range e.pastries {
		if e.pastries[i].Automation {
			n++
		}
	}
	return n
}

func (e *Engine) CanAfford(cost bignum.Number) bool {
	return bignum.Compare(e.money, cost) >= 0
}

// AddMoney credits amount unconditionally.
func (e *Engine) AddMoney(amount bignum.Number) {
	e.money = bignum.Add(e.money, amount)
	e.writeAudit(AuditEntry{Action: AuditEarn, Amount: amount})
	e.commit()
}

// SpendMoney deducts cost iff the balance covers it. Every paying path goes
// through spend.
func (e *Engine) SpendMoney(cost bignum.Number) bool {
	if !e.spend(cost) {
		return false
	}
	e.commit()
	return true
}

func (e *Engine) spend(cost bignum.Number) bool {
	if !e.CanAfford(cost) {
		return false
	}
	e.money = bignum.Sub(e.money, cost)
	return true
}

// NextCost is baseCost × costMultiplier^level. The power is taken in
// float64 and saturates to the exponent cap at extreme levels.
func NextCost(p Pastry) bignum.Number {
	pow := math.Pow(p.CostMultiplier, float64(p.Level))
	if math.IsInf(pow, 1) {
		return bignum.New(9.99, bignum.MaxExponent)
	}
	return bignum.Mul(p.BaseCost, bignum.FromFloat(pow))
}

// Earnings is what one completed build of p pays out.
func (e *Engine) Earnings(p Pastry) bignum.Number {
	if p.Level <= 0 {
		return bignum.Zero()
	}
	out := bignum.Mul(p.BaseRevenue, bignum.FromInt(p.Level))
	out = bignum.Scale(out, p.SellMultiplier)
	out = bignum.Scale(out, e.globalSell)
	return bignum.Scale(out, e.prestigeMultiplier())
}

func (e *Engine) prestigeMultiplier() float64 {
	return 1 + float64(e.lifeLessons)*e.cfg.LifeLessonBonus
}

func (e *Engine) commit() {
	if e.persist == nil {
		return
	}
	e.persist.Save(e.Export())
}

func (e *Engine) writeAudit(entry AuditEntry) {
	if e.audit == nil {
		return
	}
	entry.Tick = e.tick
	entry.Money = e.money
	if err := e.audit.WriteAudit(entry); err != nil {
		e.log.Printf("audit: %v", err)
	}
}
