package save

import (
	"context"
	"io"
	"log"
	"sync/atomic"
	"time"

	"idlebakery.ai/internal/persistence/kv"
	"idlebakery.ai/internal/sim/economy"
)

const DefaultKey = "bakery_save_v1"

// Adapter writes the economy save blob to a kv.Store under a single key. It
// implements economy.Persistence: store failures are logged, never returned.
type Adapter struct {
	store   kv.Store
	key     string
	log     *log.Logger
	timeout time.Duration

	writes   atomic.Uint64
	failures atomic.Uint64
}

func NewAdapter(store kv.Store, key string, logger *log.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Adapter{store: store, key: key, log: logger, timeout: 2 * time.Second}
}

func (a *Adapter) Key() string { return a.key }

// Stats reports write attempts and failures.
func (a *Adapter) Stats() (writes, failures uint64) { return a.writes.Load(), a.failures.Load() }

func (a *Adapter) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

func (a *Adapter) Save(s economy.SaveState) {
	if a == nil || a.store == nil {
		return
	}
	a.writes.Add(1)
	raw, err := Encode(s)
	if err != nil {
		a.failures.Add(1)
		a.log.Printf("save encode: %v", err)
		return
	}
	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.store.Set(ctx, a.key, raw); err != nil {
		a.failures.Add(1)
		a.log.Printf("save write %s: %v", a.key, err)
	}
}

func (a *Adapter) Clear() {
	if a == nil || a.store == nil {
		return
	}
	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.store.Remove(ctx, a.key); err != nil {
		a.log.Printf("save clear %s: %v", a.key, err)
	}
}

// Load overlays the stored save onto e. A missing key, an unreadable store
// or an unparsable payload all leave e at its defaults and report false.
func (a *Adapter) Load(e *economy.Engine) bool {
	if a == nil || a.store == nil {
		return false
	}
	ctx, cancel := a.ctx()
	defer cancel()
	raw, ok, err := a.store.Get(ctx, a.key)
	if err != nil {
		a.log.Printf("save read %s: %v", a.key, err)
		return false
	}
	if !ok {
		return false
	}
	s, dropped, err := Decode(raw, e.Export())
	if err != nil {
		a.log.Printf("save decode %s: %v; starting fresh", a.key, err)
		return false
	}
	if len(dropped) > 0 {
		a.log.Printf("save decode %s: dropped malformed fields %v", a.key, dropped)
	}
	e.Restore(s)
	return true
}
