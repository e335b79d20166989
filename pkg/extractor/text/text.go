package text

import (
	"context"
	"os"
	"strings"

	"github.com/gtonic/resumebot/pkg/extractor"
)

var _ extractor.Provider = &Extractor{}

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}
