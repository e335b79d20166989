package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtonic/resumebot/pkg/authorizer"
	"github.com/gtonic/resumebot/pkg/authorizer/header"
)

type userTransport struct {
	user string
}

func (u userTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set(header.DefaultHeader, u.user)

	return http.DefaultTransport.RoundTrip(r)
}

func newToolSession(t *testing.T, srv *httptest.Server) *mcp.ClientSession {
	t.Helper()

	client := mcp.NewClient(&mcp.Implementation{Name: "resumebot-test", Version: "v0.0.1"}, nil)

	session, err := client.Connect(t.Context(), &mcp.StreamableClientTransport{
		Endpoint:   srv.URL + "/mcp",
		HTTPClient: &http.Client{Transport: userTransport{user: testUser}},
	}, nil)
	require.NoError(t, err)

	t.Cleanup(func() { session.Close() })

	return session
}

func callTool[T any](t *testing.T, session *mcp.ClientSession, name string, arguments any) T {
	t.Helper()

	res, err := session.CallTool(t.Context(), &mcp.CallToolParams{Name: name, Arguments: arguments})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s failed: %v", name, res.Content)

	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)

	var out T
	require.NoError(t, json.Unmarshal(data, &out))

	return out
}

func TestToolsAnswerAndRecordForHeaderUser(t *testing.T) {
	cfg, root := newTestConfig(t, "")
	addResume(t, root, "Jane_Doe_resume.txt", "Jane Doe writes compilers. She builds parsers in Go.")

	srv := newTestServer(t, cfg)
	session := newToolSession(t, srv)

	people := callTool[PeopleOutput](t, session, "people", map[string]any{})
	assert.Equal(t, []string{"Jane Doe"}, people.People)

	answer := callTool[AskOutput](t, session, "ask", &AskInput{Backend: "gpt", Question: "What does Jane Doe build?"})
	assert.Equal(t, "Jane builds parsers.", answer.Answer)

	var user User

	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/users/me", nil, &user))
	require.Len(t, user.Questions, 1)
	assert.Equal(t, "What does Jane Doe build?", user.Questions[0].Question)
}

func TestPeopleToolWithoutResumes(t *testing.T) {
	cfg, _ := newTestConfig(t, "")

	session := newToolSession(t, newTestServer(t, cfg))

	res, err := session.CallTool(t.Context(), &mcp.CallToolParams{Name: "people", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)

	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	assert.JSONEq(t, `{"people": []}`, string(data))
}

func TestAskToolReportsErrors(t *testing.T) {
	cfg, _ := newTestConfig(t, "")

	session := newToolSession(t, newTestServer(t, cfg))

	res, err := session.CallTool(t.Context(), &mcp.CallToolParams{
		Name:      "ask",
		Arguments: &AskInput{Backend: "unknown", Question: "Hello?"},
	})
	require.NoError(t, err)

	assert.True(t, res.IsError)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "backend not found")
}

func TestToolUser(t *testing.T) {
	cfg, _ := newTestConfig(t, "")

	s, err := New(cfg)
	require.NoError(t, err)

	user, err := s.toolUser(t.Context(), &mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.Equal(t, authorizer.Anonymous, user)

	user, err = s.toolUser(t.Context(), &mcp.CallToolRequest{
		Extra: &mcp.RequestExtra{Header: http.Header{header.DefaultHeader: []string{testUser}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user)

	user, err = s.toolUser(t.Context(), &mcp.CallToolRequest{
		Extra: &mcp.RequestExtra{Header: http.Header{}},
	})
	require.NoError(t, err)
	assert.Equal(t, authorizer.Anonymous, user)
}
