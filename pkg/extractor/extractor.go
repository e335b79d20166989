package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

type Provider interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Mux picks an extractor by file extension.
type Mux map[string]Provider

func (m Mux) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	p, ok := m[ext]

	if !ok {
		return "", fmt.Errorf("no extractor for %q", ext)
	}

	return p.Extract(ctx, path)
}

// Extensions lists the extensions the mux can handle.
func (m Mux) Extensions() []string {
	var result []string

	for ext := range m {
		result = append(result, ext)
	}

	return result
}
