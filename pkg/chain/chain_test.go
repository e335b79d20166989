package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answerFunc func(ctx context.Context, question string) (string, error)

func (f answerFunc) Query(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

func TestWithLoggingPassesThrough(t *testing.T) {
	p := WithLogging(answerFunc(func(ctx context.Context, question string) (string, error) {
		return "echo: " + question, nil
	}), "gpt")

	answer, err := p.Query(context.Background(), "who knows Go?")
	require.NoError(t, err)
	assert.Equal(t, "echo: who knows Go?", answer)
}

func TestWithLoggingReturnsErrors(t *testing.T) {
	failure := errors.New("rate limited")

	p := WithLogging(answerFunc(func(ctx context.Context, question string) (string, error) {
		return "partial", failure
	}), "gpt")

	answer, err := p.Query(context.Background(), "who knows Go?")
	assert.ErrorIs(t, err, failure)
	assert.Empty(t, answer)
}
