package memory

import (
	"context"
	"sync"
	"time"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/ratelimiter"
)

type window struct {
	count     int
	expiresAt time.Time
}

// MemoryLimiter implementa ventanas fijas por proceso. Sirve para deploys
// de un solo nodo; con réplicas hay que usar la variante Redis.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewLimiter() *MemoryLimiter {
	l := &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	go l.sweep()
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, ttl time.Duration) (*ratelimiter.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	win, ok := l.windows[key]
	if !ok || now.After(win.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(ttl)}
		return &ratelimiter.Result{
			Allowed:   true,
			Remaining: limit - 1,
			Reset:     now.Add(ttl),
		}, nil
	}

	win.count++
	remaining := limit - win.count
	if remaining < 0 {
		remaining = 0
	}

	return &ratelimiter.Result{
		Allowed:    win.count <= limit,
		Remaining:  remaining,
		Reset:      win.expiresAt,
		RetryAfter: win.expiresAt.Sub(now),
	}, nil
}

func (l *MemoryLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		l.mu.Lock()
		now := l.now()
		for key, win := range l.windows {
			if now.After(win.expiresAt) {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}
