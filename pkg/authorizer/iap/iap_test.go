package iap

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtonic/resumebot/pkg/authorizer"
)

const audience = "/projects/123/global/backendServices/456"

func sign(t *testing.T, key *ecdsa.PrivateKey, payload map[string]any) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "ES256", "typ": "JWT"})
	require.NoError(t, err)

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	input := base64.RawURLEncoding.EncodeToString(header) + "." + base64.RawURLEncoding.EncodeToString(body)
	digest := sha256.Sum256([]byte(input))

	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	require.NoError(t, err)

	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])

	return input + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func newTestAuthorizer(t *testing.T) (*Authorizer, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	a, err := New(context.Background(), audience, WithKeySet(&oidc.StaticKeySet{
		PublicKeys: []crypto.PublicKey{&key.PublicKey},
	}))
	require.NoError(t, err)

	return a, key
}

func TestAuthorizeValidAssertion(t *testing.T) {
	a, key := newTestAuthorizer(t)

	r := httptest.NewRequest("POST", "/ask_gpt", nil)
	r.Header.Set(Header, sign(t, key, map[string]any{
		"iss":   Issuer,
		"aud":   audience,
		"sub":   "accounts.google.com:1234",
		"email": "jane@example.com",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}))

	id, err := a.Authorize(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", id)
}

func TestAuthorizeRejectsWrongAudience(t *testing.T) {
	a, key := newTestAuthorizer(t)

	r := httptest.NewRequest("POST", "/ask_gpt", nil)
	r.Header.Set(Header, sign(t, key, map[string]any{
		"iss":   Issuer,
		"aud":   "/projects/999/global/backendServices/1",
		"email": "mallory@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}))

	_, err := a.Authorize(context.Background(), r)
	assert.ErrorIs(t, err, authorizer.ErrUnauthorized)
}

func TestAuthorizeWithoutAssertionDefers(t *testing.T) {
	a, _ := newTestAuthorizer(t)

	r := httptest.NewRequest("GET", "/people", nil)

	id, err := a.Authorize(context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, id)

	id, err = authorizer.User(context.Background(), r, a)
	require.NoError(t, err)
	assert.Equal(t, authorizer.Anonymous, id)
}
