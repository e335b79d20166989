// Package iap verifies the signed header Identity-Aware Proxy adds to every
// request it forwards.
package iap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	log "github.com/sirupsen/logrus"

	"github.com/gtonic/resumebot/pkg/authorizer"
)

var _ authorizer.Provider = &Authorizer{}

const (
	Header = "X-Goog-IAP-JWT-Assertion"

	Issuer  = "https://cloud.google.com/iap"
	KeysURL = "https://www.gstatic.com/iap/verify/public_key-jwk"
)

type Authorizer struct {
	audience string

	keys oidc.KeySet

	verifier *oidc.IDTokenVerifier
}

type Option func(*Authorizer)

// WithKeySet replaces the keys fetched from KeysURL.
func WithKeySet(keys oidc.KeySet) Option {
	return func(a *Authorizer) {
		a.keys = keys
	}
}

// New verifies tokens issued for audience, for example
// "/projects/123/global/backendServices/456".
func New(ctx context.Context, audience string, options ...Option) (*Authorizer, error) {
	a := &Authorizer{
		audience: audience,
	}

	for _, option := range options {
		option(a)
	}

	if a.audience == "" {
		return nil, errors.New("missing audience")
	}

	if a.keys == nil {
		a.keys = oidc.NewRemoteKeySet(ctx, KeysURL)
	}

	a.verifier = oidc.NewVerifier(Issuer, a.keys, &oidc.Config{
		ClientID: a.audience,

		SupportedSigningAlgs: []string{oidc.ES256},
	})

	return a, nil
}

type claims struct {
	Email string `json:"email"`
}

func (a *Authorizer) Authorize(ctx context.Context, r *http.Request) (string, error) {
	raw := r.Header.Get(Header)

	if raw == "" {
		return "", nil
	}

	token, err := a.verifier.Verify(ctx, raw)

	if err != nil {
		log.WithError(err).Warn("rejecting invalid IAP assertion")
		return "", fmt.Errorf("%w: %w", authorizer.ErrUnauthorized, err)
	}

	var c claims

	if err := token.Claims(&c); err != nil {
		return "", fmt.Errorf("%w: %w", authorizer.ErrUnauthorized, err)
	}

	if c.Email != "" {
		return c.Email, nil
	}

	return token.Subject, nil
}
