package util

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter rate-limits per target host so two work units that share a
// domain never hit it faster than the configured rate, while unrelated hosts
// proceed independently.
type HostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func NewHostLimiter(every time.Duration, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	r := rate.Inf
	if every > 0 {
		r = rate.Every(every)
	}
	return &HostLimiter{
		m: make(map[string]*rate.Limiter),
		r: r,
		b: burst,
	}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(hl.r, hl.b)
	hl.m[host] = lim
	return lim
}

// Wait blocks until host may be contacted again or ctx is done.
func (hl *HostLimiter) Wait(ctx context.Context, host string) error {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		host = "_"
	}
	return hl.limiterFor(host).Wait(ctx)
}

// Pacer holds one worker back for a fixed gap after each unit it finishes.
// The gap runs from Done to the next Wait, so a slow unit is still followed
// by the full delay. A Pacer belongs to a single goroutine.
type Pacer struct {
	gap  time.Duration
	next time.Time
}

func NewPacer(gap time.Duration) *Pacer {
	if gap < 0 {
		gap = 0
	}
	return &Pacer{gap: gap}
}

// Done marks the end of a unit and starts the gap.
func (p *Pacer) Done() {
	if p.gap > 0 {
		p.next = time.Now().Add(p.gap)
	}
}

// Wait blocks until the gap since the last Done has elapsed. It returns
// ctx.Err() when ctx is done, even if no wait is pending.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := time.Until(p.next)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
