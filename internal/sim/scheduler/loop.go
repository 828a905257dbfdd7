package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"idlebakery.ai/internal/sim/economy"
)

var ErrStopped = errors.New("scheduler stopped")

type Config struct {
	TickInterval        time.Duration
	StatePushEveryTicks int
	InboxSize           int
}

// TickEntry is written for every tick that changed the economy.
type TickEntry struct {
	Tick       uint64 `json:"tick"`
	Generation uint64 `json:"generation"`
	Commands   int    `json:"commands,omitempty"`
	Completed  int    `json:"completed,omitempty"`
	Money      string `json:"money"`
}

type TickLogger interface {
	WriteTick(entry TickEntry) error
}

type request struct {
	fn   func(*economy.Engine) error
	resp chan error
}

// Loop owns an Engine and serializes all access to it onto the goroutine
// running Run. Other goroutines reach the engine through Do.
type Loop struct {
	cfg Config
	eng *economy.Engine
	log *log.Logger

	tickLogger TickLogger

	inbox    chan request
	stop     chan struct{}
	stopOnce sync.Once

	subMu   sync.Mutex
	subs    map[uint64]chan economy.StateView
	nextSub uint64

	pendingCommands int
	commandsTotal   atomic.Uint64
	commandErrors   atomic.Uint64
	buildsTotal     atomic.Uint64
	metrics         atomic.Value
}

func New(cfg Config, eng *economy.Engine, logger *log.Logger) *Loop {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 50 * time.Millisecond
	}
	if cfg.StatePushEveryTicks <= 0 {
		cfg.StatePushEveryTicks = 1
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 256
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	l := &Loop{
		cfg:   cfg,
		eng:   eng,
		log:   logger,
		inbox: make(chan request, cfg.InboxSize),
		stop:  make(chan struct{}),
		subs:  map[uint64]chan economy.StateView{},
	}
	l.publishMetrics(0)
	return l
}

func (l *Loop) SetTickLogger(t TickLogger) { l.tickLogger = t }

func (l *Loop) TickInterval() time.Duration { return l.cfg.TickInterval }

// Run drives the engine until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		case req := <-l.inbox:
			l.handle(req)
		case <-ticker.C:
			l.Step()
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Do runs fn on the loop goroutine and returns its error. It is safe to
// call from other goroutines (e.g. HTTP handlers).
func (l *Loop) Do(ctx context.Context, fn func(*economy.Engine) error) error {
	select {
	case <-l.stop:
		return ErrStopped
	default:
	}
	resp := make(chan error, 1)
	select {
	case l.inbox <- request{fn: fn, resp: resp}:
	case <-l.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-resp:
		return err
	case <-l.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports requests queued for the loop but not yet applied.
func (l *Loop) Pending() int { return len(l.inbox) }

// State returns a fresh view of the economy.
func (l *Loop) State(ctx context.Context) (economy.StateView, error) {
	var v economy.StateView
	err := l.Do(ctx, func(e *economy.Engine) error {
		v = e.Snapshot()
		return nil
	})
	return v, err
}

func (l *Loop) handle(req request) {
	err := req.fn(l.eng)
	l.pendingCommands++
	l.commandsTotal.Add(1)
	if err != nil {
		l.commandErrors.Add(1)
	}
	select {
	case req.resp <- err:
	default:
		// Caller gave up; don't block the loop.
	}
}

// Drain applies every queued request without waiting. Tests that drive the
// loop with Step use it in place of Run.
func (l *Loop) Drain() int {
	n := 0
	for {
		select {
		case req := <-l.inbox:
			l.handle(req)
			n++
		default:
			return n
		}
	}
}

// Step advances the engine by one tick interval. It must only be called from
// the goroutine that owns the loop: Run, or a test that never starts Run.
func (l *Loop) Step() {
	start := time.Now()
	completed := l.eng.Tick(l.cfg.TickInterval)
	tick := l.eng.CurrentTick()
	if completed > 0 {
		l.buildsTotal.Add(uint64(completed))
	}

	if l.tickLogger != nil && (completed > 0 || l.pendingCommands > 0) {
		entry := TickEntry{
			Tick:       tick,
			Generation: l.eng.Generation(),
			Commands:   l.pendingCommands,
			Completed:  completed,
			Money:      l.eng.Money().String(),
		}
		if err := l.tickLogger.WriteTick(entry); err != nil {
			l.log.Printf("tick log: %v", err)
		}
	}
	l.pendingCommands = 0

	if tick%uint64(l.cfg.StatePushEveryTicks) == 0 {
		l.broadcast(l.eng.Snapshot())
	}
	l.publishMetrics(time.Since(start))
}
