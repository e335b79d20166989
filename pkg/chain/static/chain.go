package static

import (
	"context"

	"github.com/gtonic/resumebot/pkg/chain"
)

var _ chain.Provider = &Chain{}

// Chain answers every question with the same text.
type Chain struct {
	text string
}

func New(text string) *Chain {
	return &Chain{
		text: text,
	}
}

func (c *Chain) Query(ctx context.Context, question string) (string, error) {
	return c.text, nil
}
