package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
)

// WindowLimiter admits at most limit events per key within a rolling window.
// It keeps the admission timestamps for each key; rejected events are not recorded.
type WindowLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	nowF   func() time.Time
}

func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		nowF:   time.Now,
	}
}

func (l *WindowLimiter) Allow(_ context.Context, key string) (domain.RateDecision, error) {
	now := l.nowF()
	l.mu.Lock()
	defer l.mu.Unlock()

	hits := prune(l.hits[key], now.Add(-l.window))
	if len(hits) >= l.limit {
		l.hits[key] = hits
		return domain.RateDecision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: hits[0].Add(l.window).Sub(now),
		}, nil
	}
	hits = append(hits, now)
	l.hits[key] = hits
	return domain.RateDecision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(hits),
	}, nil
}

// Sweep drops keys whose admissions have all left the window.
func (l *WindowLimiter) Sweep() {
	cutoff := l.nowF().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, hits := range l.hits {
		if hits = prune(hits, cutoff); len(hits) == 0 {
			delete(l.hits, key)
		} else {
			l.hits[key] = hits
		}
	}
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (l *WindowLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}

// prune drops timestamps at or before cutoff. hits is in ascending order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0:0], hits[i:]...)
}
