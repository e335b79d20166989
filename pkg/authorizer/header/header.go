package header

import (
	"context"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/gtonic/resumebot/pkg/authorizer"
)

var _ authorizer.Provider = &Authorizer{}

// DefaultHeader is set by Identity-Aware Proxy, for example
// "accounts.google.com:jane@example.com".
const DefaultHeader = "X-Goog-Authenticated-User-Email"

// Authorizer trusts a header set by the proxy in front of the service.
type Authorizer struct {
	header string
}

type Option func(*Authorizer)

func WithHeader(header string) Option {
	return func(a *Authorizer) {
		a.header = header
	}
}

func New(options ...Option) *Authorizer {
	a := &Authorizer{
		header: DefaultHeader,
	}

	for _, option := range options {
		option(a)
	}

	return a
}

func (a *Authorizer) Authorize(ctx context.Context, r *http.Request) (string, error) {
	value := r.Header.Get(a.header)

	if value == "" {
		log.WithField("header", a.header).Warn("no authenticated user found in request")
		return authorizer.Anonymous, nil
	}

	return UserID(value), nil
}

// UserID returns the part after the last colon.
func UserID(value string) string {
	if i := strings.LastIndex(value, ":"); i >= 0 {
		return value[i+1:]
	}

	return value
}
