// Package authorizer identifies the user behind a request.
package authorizer

import (
	"context"
	"errors"
	"net/http"
)

// Anonymous is the user id of requests nobody vouches for.
const Anonymous = "anonymous"

var ErrUnauthorized = errors.New("unauthorized")

type Provider interface {
	// Authorize returns the user id, or an empty id when the provider has
	// nothing to say about the request.
	Authorize(ctx context.Context, r *http.Request) (string, error)
}

// User asks each provider in turn and returns the first id found.
func User(ctx context.Context, r *http.Request, providers ...Provider) (string, error) {
	for _, p := range providers {
		id, err := p.Authorize(ctx, r)

		if err != nil {
			return "", err
		}

		if id != "" {
			return id, nil
		}
	}

	return Anonymous, nil
}
