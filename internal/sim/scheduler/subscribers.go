package scheduler

import "idlebakery.ai/internal/sim/economy"

// Subscribe registers a state observer. The channel holds only the latest
// view; a slow reader skips intermediate ones.
func (l *Loop) Subscribe() (uint64, <-chan economy.StateView) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	l.nextSub++
	ch := make(chan economy.StateView, 1)
	l.subs[l.nextSub] = ch
	return l.nextSub, ch
}

func (l *Loop) Unsubscribe(id uint64) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	if ch, ok := l.subs[id]; ok {
		delete(l.subs, id)
		close(ch)
	}
}

func (l *Loop) subscriberCount() int {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	return len(l.subs)
}

func (l *Loop) broadcast(v economy.StateView) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for _, ch := range l.subs {
		sendLatest(ch, v)
	}
}

func sendLatest(ch chan economy.StateView, v economy.StateView) {
	select {
	case ch <- v:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
