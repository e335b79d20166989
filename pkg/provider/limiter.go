package provider

import (
	"context"

	"golang.org/x/time/rate"
)

type limitedCompleter struct {
	limiter   *rate.Limiter
	completer Completer
}

// LimitCompleter throttles calls to c. A nil limiter returns c unchanged.
func LimitCompleter(c Completer, l *rate.Limiter) Completer {
	if l == nil {
		return c
	}

	return &limitedCompleter{
		limiter:   l,
		completer: c,
	}
}

func (c *limitedCompleter) Complete(ctx context.Context, messages []Message, options *CompleteOptions) (*Completion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return c.completer.Complete(ctx, messages, options)
}

type limitedEmbedder struct {
	limiter  *rate.Limiter
	embedder Embedder
}

func LimitEmbedder(e Embedder, l *rate.Limiter) Embedder {
	if l == nil {
		return e
	}

	return &limitedEmbedder{
		limiter:  l,
		embedder: e,
	}
}

func (e *limitedEmbedder) Embed(ctx context.Context, texts []string) (*Embedding, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return e.embedder.Embed(ctx, texts)
}
