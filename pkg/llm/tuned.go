package llm

import "context"

type tunedProvider struct {
	inner    LLMProvider
	defaults []Option
}

// Tuned returns a provider that applies defaults before any per-call options,
// so call sites only override what they need.
func Tuned(p LLMProvider, defaults ...Option) LLMProvider {
	return &tunedProvider{inner: p, defaults: defaults}
}

func (t *tunedProvider) merge(opts []Option) []Option {
	merged := make([]Option, 0, len(t.defaults)+len(opts))
	merged = append(merged, t.defaults...)
	return append(merged, opts...)
}

func (t *tunedProvider) Chat(ctx context.Context, history []Message, opts ...Option) (string, error) {
	return t.inner.Chat(ctx, history, t.merge(opts)...)
}

func (t *tunedProvider) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	return t.inner.Generate(ctx, prompt, t.merge(opts)...)
}
