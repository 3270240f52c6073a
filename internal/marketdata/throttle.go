// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package marketdata

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Default rate limits (requests per second) per provider key.
var defaultRateLimits = map[string]float64{
	"chartdata": 2.0,
	"default":   1.0,
}

// defaultBurst is the bucket capacity shared by all providers.
const defaultBurst = 10

// =============================================================================
// THROTTLER
// =============================================================================

// Throttler is a token-bucket rate limiter keyed by provider. It keeps
// one bucket per provider so a burst against one API cannot starve
// another.
type Throttler struct {
	mu       sync.Mutex
	limits   map[string]float64
	burst    int
	limiters map[string]*rate.Limiter
}

// NewThrottler creates a throttler. Entries in limits override the
// defaults; a nil map keeps them all.
func NewThrottler(limits map[string]float64) *Throttler {
	merged := make(map[string]float64, len(defaultRateLimits)+len(limits))
	for k, v := range defaultRateLimits {
		merged[k] = v
	}
	for k, v := range limits {
		merged[k] = v
	}
	return &Throttler{
		limits:   merged,
		burst:    defaultBurst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// WithBurst sets the bucket capacity for limiters created afterwards.
func (t *Throttler) WithBurst(burst int) *Throttler {
	t.mu.Lock()
	defer t.mu.Unlock()
	if burst > 0 {
		t.burst = burst
	}
	return t
}

// Wait blocks until a token is available for provider, or the context
// is done.
func (t *Throttler) Wait(ctx context.Context, provider string) error {
	return t.limiter(provider).Wait(ctx)
}

// Allow reports whether a token is immediately available, consuming it
// if so.
func (t *Throttler) Allow(provider string) bool {
	return t.limiter(provider).Allow()
}

// limiter returns (creating on first use) the bucket for provider.
func (t *Throttler) limiter(provider string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if lim, ok := t.limiters[provider]; ok {
		return lim
	}
	rps, ok := t.limits[provider]
	if !ok {
		rps = t.limits["default"]
	}
	lim := rate.NewLimiter(rate.Limit(rps), t.burst)
	t.limiters[provider] = lim
	return lim
}
