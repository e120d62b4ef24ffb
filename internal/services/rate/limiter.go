// Package rate throttles announce traffic per source IP. The limiter
// fails open: when redis is unreachable the tracker keeps serving
// announces rather than dropping the swarm.
package rate

import (
	"context"
	"fmt"
	"time"
)

type AnnounceCounter interface {
	CountAnnounce(ctx context.Context, ip string, window time.Duration) (int64, time.Duration, error)
	AnnounceWindowState(ctx context.Context, ip string) (int64, time.Duration, error)
}

type Limiter struct {
	store     AnnounceCounter
	perWindow int
	window    time.Duration
}

func NewLimiter(store AnnounceCounter, perWindow int, window time.Duration) *Limiter {
	if perWindow < 0 {
		perWindow = 0
	}
	if window <= 0 {
		window = time.Minute
	}

	return &Limiter{
		store:     store,
		perWindow: perWindow,
		window:    window,
	}
}

// AllowAnnounce reports whether an announce from ip may proceed and,
// when it may not, how many seconds the client should wait. A nil store
// or a disabled limit admits everything.
func (l *Limiter) AllowAnnounce(ctx context.Context, ip string) (int64, bool, error) {
	if ip == "" {
		return 0, false, fmt.Errorf("announce ip is required")
	}
	if l.store == nil || l.perWindow == 0 {
		return 0, true, nil
	}

	count, ttl, err := l.store.CountAnnounce(ctx, ip, l.window)
	if err != nil {
		return 0, false, err
	}
	if count > int64(l.perWindow) {
		return ceilSeconds(ttl), false, nil
	}

	return 0, true, nil
}

// RetryAfter reports the remaining wait for ip without counting a new
// announce.
func (l *Limiter) RetryAfter(ctx context.Context, ip string) (int64, error) {
	if ip == "" {
		return 0, fmt.Errorf("announce ip is required")
	}
	if l.store == nil || l.perWindow == 0 {
		return 0, nil
	}

	count, ttl, err := l.store.AnnounceWindowState(ctx, ip)
	if err != nil {
		return 0, err
	}
	if count >= int64(l.perWindow) {
		return ceilSeconds(ttl), nil
	}

	return 0, nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
