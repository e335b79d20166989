package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gtonic/resumebot/pkg/authorizer"
	"github.com/gtonic/resumebot/pkg/chain"
)

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	user, err := authorizer.User(r.Context(), r, s.Authorizers...)

	if err != nil {
		writeError(w, err)
		return
	}

	answer, err := s.ask(r.Context(), user, chi.URLParam(r, "backend"), req.Question)

	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, &AskResponse{
		Answer: answer,
	})
}

// ask runs a question against a backend: make sure the index is fresh,
// build the engine, query it and record the interaction.
func (s *Server) ask(ctx context.Context, user, backend, question string) (string, error) {
	question = strings.TrimSpace(question)

	if question == "" {
		return "", fmt.Errorf("%w: question is required", errBadRequest)
	}

	b, err := s.Backend(backend)

	if err != nil {
		return "", fmt.Errorf("%w: %w", errBadRequest, err)
	}

	engine := b.Engine

	if b.Resume() {
		corpus, err := s.Coordinator.Corpus(ctx)

		if err != nil {
			return "", err
		}

		if corpus.Len() == 0 {
			return "", ErrNoResumes
		}

		engine, err = b.Builder.Build(corpus)

		if err != nil {
			return "", err
		}
	}

	answer, err := chain.WithLogging(engine, b.Label).Query(ctx, question)

	if err != nil {
		if b.Record {
			s.Recorder.RecordFailure(ctx, user, b.Label, question, err)
		}

		return "", fmt.Errorf("%w: %w", errQuery, err)
	}

	if b.Record {
		s.Recorder.Record(ctx, user, b.Label, question, answer)
	}

	return answer, nil
}

func (s *Server) handlePeople(w http.ResponseWriter, r *http.Request) {
	if s.Coordinator == nil {
		writeJson(w, []string{})
		return
	}

	names, err := s.Coordinator.Names(r.Context())

	if err != nil {
		writeError(w, err)
		return
	}

	if names == nil {
		names = []string{}
	}

	writeJson(w, names)
}
