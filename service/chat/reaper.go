package chat

import (
	"context"
	"sync"
	"time"

	"chatgate/logger"
	chatsvc "chatgate/module/chat/service"
	"chatgate/tools/safe"
)

// Reaper periodically removes presence records whose last activity
// fell outside the inactivity window. It is a backstop for TTL expiry
// that may not fire exactly (store restarts, clock skew) and runs
// independently of connection handling.
type Reaper struct {
	svc      *chatsvc.ChatService
	every    time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewReaper(svc *chatsvc.ChatService, every time.Duration) *Reaper {
	if every <= 0 {
		every = 2 * time.Minute
	}
	return &Reaper{svc: svc, every: every, stopCh: make(chan struct{})}
}

func (r *Reaper) Start() {
	safe.Go(func() {
		ticker := time.NewTicker(r.every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep()
			case <-r.stopCh:
				return
			}
		}
	})
}

func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Reaper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if n := r.svc.SweepExpired(ctx); n > 0 {
		logger.Debugf("[reaper] removed %d stale records", n)
	}
}
