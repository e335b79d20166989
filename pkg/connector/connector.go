package connector

import "context"

// Provider is a background worker started next to the HTTP server.
type Provider interface {
	// Start runs until the context is cancelled or an unrecoverable error occurs.
	Start(ctx context.Context) error

	// ID returns the key the connector was configured under.
	ID() string
}
