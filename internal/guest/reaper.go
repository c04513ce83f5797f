package guest

import (
	"context"
	"time"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

// Start launches the reaper. It runs until ctx is cancelled or Stop is
// called. Calling Start on a running store is a no-op.
func (st *Store) Start(ctx context.Context) {
	st.lifecycle.Lock()
	defer st.lifecycle.Unlock()

	if st.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	st.done = make(chan struct{})

	go st.reap(ctx, st.done)

	logger.LogInfo("Guest reaper started. Timeout: %s, Interval: %s", st.timeout, st.reapInterval)
}

// Stop cancels the reaper and waits for it to exit.
func (st *Store) Stop() {
	st.lifecycle.Lock()
	cancel, done := st.cancel, st.done
	st.cancel, st.done = nil, nil
	st.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (st *Store) reap(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(st.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.LogInfo("Guest reaper stopped")
			return
		case <-ticker.C:
			st.safeSweep()
		}
	}
}

// safeSweep runs one sweep and keeps a panic from ending the loop.
func (st *Store) safeSweep() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogError("[GUEST] Reaper: sweep failed: %v", r)
		}
	}()

	n := st.Sweep()
	if n > 0 && st.onReap != nil {
		st.onReap(n)
	}
}

// Sweep removes every session idle for longer than the timeout and returns
// how many were removed. Sessions busy with an operation are skipped; they
// are being accessed and so are not idle.
func (st *Store) Sweep() int {
	now := st.clock.Now()

	st.mu.Lock()
	removed := 0
	var freed int64
	for id, s := range st.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if now.Sub(s.lastAccessedAt) > st.timeout {
			freed += s.bytes
			st.release(s)
			delete(st.sessions, id)
			removed++
			logger.LogDebug("Guest session expired: %s", id)
		}
		s.mu.Unlock()
	}
	st.mu.Unlock()

	if removed > 0 {
		st.reaped.Add(uint64(removed))
		logger.LogInfo("[GUEST] Reaper: cleaned %d sessions (%s freed)", removed, utils.FormatBytes(freed))
	}
	return removed
}
