package otel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	assert.False(t, Enabled())
	assert.NoError(t, Setup("resumebot", "0.1.12"))
}
