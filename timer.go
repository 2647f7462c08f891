package main

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TimerService owns every per-room countdown. At most one live countdown
// exists per room: start replaces any predecessor, and an expiring
// countdown removes its own handle before running the expiry callback, so
// a countdown started from inside that callback is never cancelled by
// stale cleanup of the one that just finished.
type TimerService struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	gen    uint64
	active map[string]*countdown
}

type countdown struct {
	gen    uint64
	cancel chan struct{}
}

func newTimerService(clock clockwork.Clock) *TimerService {
	return &TimerService{
		clock:  clock,
		active: make(map[string]*countdown),
	}
}

// start begins a countdown for a room, cancelling any countdown already
// running there. onTick receives the seconds remaining after each elapsed
// second, down to zero; onExpire then runs exactly once.
func (t *TimerService) start(roomCode string, seconds int, onTick func(remaining int), onExpire func()) {
	t.mu.Lock()
	if cur, ok := t.active[roomCode]; ok {
		close(cur.cancel)
	}
	t.gen++
	cd := &countdown{gen: t.gen, cancel: make(chan struct{})}
	t.active[roomCode] = cd

	// The ticker is created before start returns so callers can advance
	// a fake clock immediately after.
	ticker := t.clock.NewTicker(time.Second)
	t.mu.Unlock()

	go t.run(roomCode, cd, ticker, seconds, onTick, onExpire)
}

func (t *TimerService) run(roomCode string, cd *countdown, ticker clockwork.Ticker, seconds int, onTick func(int), onExpire func()) {
	defer ticker.Stop()

	remaining := seconds
	for {
		select {
		case <-cd.cancel:
			return
		case <-ticker.Chan():
			if t.stale(roomCode, cd.gen) {
				return
			}

			remaining--
			if remaining < 0 {
				remaining = 0
			}
			onTick(remaining)
			if remaining > 0 {
				continue
			}

			// Drop our own handle first; onExpire may start the
			// next countdown for this room.
			t.mu.Lock()
			cur, ok := t.active[roomCode]
			expired := ok && cur.gen == cd.gen
			if expired {
				delete(t.active, roomCode)
			}
			t.mu.Unlock()

			if expired {
				onExpire()
			}
			return
		}
	}
}

// stale reports whether this countdown has been replaced or stopped; the
// tick path checks it because cancellation and a pending tick can race.
func (t *TimerService) stale(roomCode string, gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.active[roomCode]
	return !ok || cur.gen != gen
}

// stop cancels a room's countdown if one is running. Safe to call twice,
// and a no-op for rooms with no countdown.
func (t *TimerService) stop(roomCode string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.active[roomCode]; ok {
		close(cur.cancel)
		delete(t.active, roomCode)
	}
}

// running reports whether a room currently has a live countdown.
func (t *TimerService) running(roomCode string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.active[roomCode]
	return ok
}
