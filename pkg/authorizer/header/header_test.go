package header

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtonic/resumebot/pkg/authorizer"
)

func TestUserID(t *testing.T) {
	assert.Equal(t, "jane@example.com", UserID("accounts.google.com:jane@example.com"))
	assert.Equal(t, "jane@example.com", UserID("jane@example.com"))
	assert.Equal(t, "c", UserID("a:b:c"))
}

func TestAuthorize(t *testing.T) {
	a := New()

	r := httptest.NewRequest("POST", "/ask_gpt", nil)

	id, err := a.Authorize(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, authorizer.Anonymous, id)

	r.Header.Set(DefaultHeader, "accounts.google.com:jane@example.com")

	id, err = authorizer.User(context.Background(), r, a)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", id)
}
