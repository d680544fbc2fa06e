package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"claimflow/internal/port"
	"claimflow/internal/reasoner"
)

// callPolicy bounds a single reasoning call: per-call timeout, and at most
// one retry with backoff for transient failures.
type callPolicy struct {
	timeout time.Duration
	backoff time.Duration
}

func (p callPolicy) invoke(ctx context.Context, r port.Reasoner, input port.ReasonInput) (json.RawMessage, error) {
	out, err := p.invokeOnce(ctx, r, input)
	if err == nil || !reasoner.IsRetryable(err) {
		return out, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(p.backoff):
	}
	return p.invokeOnce(ctx, r, input)
}

func (p callPolicy) invokeOnce(ctx context.Context, r port.Reasoner, input port.ReasonInput) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return r.Invoke(callCtx, input)
}
