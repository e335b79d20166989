package segmenter

import (
	"context"
)

type Segment struct {
	Index int
	Text  string
}

type Provider interface {
	Segment(ctx context.Context, text string) ([]Segment, error)
}
