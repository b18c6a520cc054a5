package ratelimiter

import (
	"context"
	"time"
)

// Result describe la decisión del limitador para una clave.
type Result struct {
	Allowed    bool
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Limiter cuenta peticiones por clave dentro de una ventana fija.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}
