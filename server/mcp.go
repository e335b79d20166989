package server

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gtonic/resumebot/config"
	"github.com/gtonic/resumebot/pkg/authorizer"
)

type AskInput struct {
	Backend  string `json:"backend" jsonschema:"the backend answering the question, as listed by the server configuration"`
	Question string `json:"question" jsonschema:"the question about the people in the resume index"`
}

type AskOutput struct {
	Answer string `json:"answer"`
}

type PeopleInput struct{}

type PeopleOutput struct {
	People []string `json:"people"`
}

func (s *Server) mcpHandler() http.Handler {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "resumebot",
		Version: config.Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question about the people whose resumes are indexed",
	}, s.handleAskTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "people",
		Description: "List the people whose resumes are indexed",
	}, s.handlePeopleTool)

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := authorizer.User(r.Context(), r, s.Authorizers...); err != nil {
			writeError(w, err)
			return
		}

		handler.ServeHTTP(w, r)
	})
}

// toolUser resolves the caller of a tool from the headers of the HTTP request
// that carried it.
func (s *Server) toolUser(ctx context.Context, req *mcp.CallToolRequest) (string, error) {
	if req == nil || req.Extra == nil || req.Extra.Header == nil {
		return authorizer.Anonymous, nil
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, "/mcp", nil)

	if err != nil {
		return "", err
	}

	r.Header = req.Extra.Header

	return authorizer.User(ctx, r, s.Authorizers...)
}

func (s *Server) handleAskTool(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	user, err := s.toolUser(ctx, req)

	if err != nil {
		return nil, AskOutput{}, err
	}

	answer, err := s.ask(ctx, user, input.Backend, input.Question)

	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{Answer: answer}, nil
}

func (s *Server) handlePeopleTool(ctx context.Context, _ *mcp.CallToolRequest, _ PeopleInput) (*mcp.CallToolResult, PeopleOutput, error) {
	output := PeopleOutput{
		People: []string{},
	}

	if s.Coordinator == nil {
		return nil, output, nil
	}

	names, err := s.Coordinator.Names(ctx)

	if err != nil {
		return nil, output, err
	}

	if names != nil {
		output.People = names
	}

	return nil, output, nil
}
