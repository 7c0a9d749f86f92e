// Package ratelimit implements per-host token-bucket politeness control.
// Third-party relay services are shared infrastructure; hammering them gets
// the relay itself blocked.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration.
type Config struct {
	DefaultRPS   float64
	DefaultBurst int
	// HostRPS overrides the default for specific hosts (relay endpoints
	// typically get a lower cap).
	HostRPS map[string]float64
}

// Limiter manages one token bucket per outbound host.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
	hostRPS      map[string]float64
	// Observe, when set, is called with the wait introduced per host.
	Observe func(host string, waited time.Duration)
}

// New creates a Limiter. A non-positive DefaultRPS disables limiting.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.DefaultRPS)
	if cfg.DefaultRPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.DefaultBurst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  r,
		defaultBurst: burst,
		hostRPS:      cfg.HostRPS,
	}
}

// Wait blocks until a token is available for the URL's host, honoring ctx.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		r := l.defaultRate
		if rps, found := l.hostRPS[host]; found && rps > 0 {
			r = rate.Limit(rps)
		}
		limiter = rate.NewLimiter(r, l.defaultBurst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if l.Observe != nil {
		if waited := time.Since(start); waited > time.Millisecond {
			l.Observe(host, waited)
		}
	}
	return nil
}
