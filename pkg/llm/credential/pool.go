package credential

import (
	"context"
	"errors"

	"nutria-assistant-be/internal/pkg/logger"
)

var (
	ErrNoCredential = errors.New("no LLM credential configured")
	ErrNoReserve    = errors.New("no distinct reserved LLM credential configured")
)

// Source hands out stored API keys. Acquire returns "" when the store has none.
type Source interface {
	Acquire(ctx context.Context) (string, error)
}

// Pool picks the credential for a pipeline attempt: the least used stored key
// (falling back to the configured primary) for the first attempt and the
// configured reserve for the single quota retry.
type Pool struct {
	source  Source
	primary string
	reserve string
	logger  logger.ILogger
}

func NewPool(source Source, primary, reserve string, log logger.ILogger) *Pool {
	return &Pool{
		source:  source,
		primary: primary,
		reserve: reserve,
		logger:  log,
	}
}

func (p *Pool) Primary(ctx context.Context) (string, error) {
	if p.source != nil {
		key, err := p.source.Acquire(ctx)
		if err != nil {
			p.logger.Warn("Credential", "Stored key lookup failed, using configured key", map[string]interface{}{
				"error": err.Error(),
			})
		} else if key != "" {
			return key, nil
		}
	}

	if p.primary == "" {
		return "", ErrNoCredential
	}
	return p.primary, nil
}

type attemptKey struct{}

// WithAttempt marks ctx with the credential the running pipeline attempt uses.
func WithAttempt(ctx context.Context, apiKey string) context.Context {
	return context.WithValue(ctx, attemptKey{}, apiKey)
}

func FromAttempt(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(attemptKey{}).(string)
	return key, ok && key != ""
}

// Current returns the credential of the attempt carried by ctx, so LLM-backed
// tools follow a quota retry onto the reserved key. Outside an attempt it
// behaves like Primary.
func (p *Pool) Current(ctx context.Context) (string, error) {
	if key, ok := FromAttempt(ctx); ok {
		return key, nil
	}
	return p.Primary(ctx)
}

// Reserve returns the reserved key, refusing to hand back the key that just failed.
func (p *Pool) Reserve(used string) (string, error) {
	if p.reserve == "" || p.reserve == used {
		return "", ErrNoReserve
	}
	return p.reserve, nil
}
