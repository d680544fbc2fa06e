package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"claimflow/internal/port"
)

// circuitState tracks rate-limit backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackReasoner tries providers in order, skipping those with open
// circuits. It implements port.Reasoner.
type FallbackReasoner struct {
	reasoners []port.Reasoner
	circuits  []*circuitState
	names     []string
}

// NewFallbackReasoner creates a FallbackReasoner from an ordered list of
// providers and their names.
func NewFallbackReasoner(reasoners []port.Reasoner, names []string) *FallbackReasoner {
	circuits := make([]*circuitState, len(reasoners))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackReasoner{
		reasoners: reasoners,
		circuits:  circuits,
		names:     names,
	}
}

func (f *FallbackReasoner) Invoke(ctx context.Context, input port.ReasonInput) (json.RawMessage, error) {
	now := time.Now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, r := range f.reasoners {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			log.Printf("reasoner.FallbackReasoner: skipping %s (circuit open until %s)", f.names[i], resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := r.Invoke(ctx, input)
		if err == nil {
			return out, nil
		}

		log.Printf("reasoner.FallbackReasoner: %s failed: %v", f.names[i], err)
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		// Every provider was either skipped or rate limited.
		retryAfter := time.Until(earliestReset)
		if retryAfter < 0 {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all reasoning providers rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all reasoning providers failed: %w", lastErr)
}
