package pdf

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/gtonic/resumebot/pkg/extractor"
)

var _ extractor.Provider = &Extractor{}

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)

	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}

	defer f.Close()

	text, err := r.GetPlainText()

	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	data, err := io.ReadAll(text)

	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}
