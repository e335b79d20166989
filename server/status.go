package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gtonic/resumebot/config"
	"github.com/gtonic/resumebot/pkg/authorizer"
	"github.com/gtonic/resumebot/pkg/vote"
)

type Health struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	ReleaseDate string `json:"releaseDate"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJson(w, &Health{
		Status:      "ok",
		Version:     config.Version,
		ReleaseDate: config.ReleaseDate,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	handleHealth(w, r)
}

type VoteRequest struct {
	Backend  string `json:"backend"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Upvoted  bool   `json:"upvoted"`
}

type VoteStats struct {
	Name string `json:"name"`
	Up   int    `json:"up"`
	Down int    `json:"down"`
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	if strings.TrimSpace(req.Backend) == "" {
		writeError(w, fmt.Errorf("%w: backend is required", errBadRequest))
		return
	}

	user, err := authorizer.User(r.Context(), r, s.Authorizers...)

	if err != nil {
		writeError(w, err)
		return
	}

	label := req.Backend

	if b, err := s.Backend(req.Backend); err == nil {
		label = b.Label
	}

	if err := s.Votes.Submit(r.Context(), vote.Vote{
		UserID:   user,
		Backend:  label,
		Question: req.Question,
		Answer:   req.Answer,
		Upvoted:  req.Upvoted,
	}); err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, map[string]string{"status": "ok"})
}

func (s *Server) handleVotes(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Votes.Stats(r.Context())

	if err != nil {
		writeError(w, err)
		return
	}

	result := make([]VoteStats, 0, len(stats))

	for _, st := range stats {
		result = append(result, VoteStats{
			Name: st.Backend,
			Up:   st.Up,
			Down: st.Down,
		})
	}

	writeJson(w, result)
}

type Interaction struct {
	Backend  string `json:"llm_backend"`
	Question string `json:"question"`
	Answer   string `json:"answer"`

	Timestamp string `json:"timestamp"`
}

type User struct {
	ID         string        `json:"user_id"`
	FirstLogin string        `json:"first_login"`
	Questions  []Interaction `json:"interactions"`
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	id, err := authorizer.User(r.Context(), r, s.Authorizers...)

	if err != nil {
		writeError(w, err)
		return
	}

	u, err := s.History.User(r.Context(), id)

	if err != nil {
		writeError(w, err)
		return
	}

	result := &User{
		ID:         u.ID,
		FirstLogin: u.FirstLogin.Format(time.RFC3339),
		Questions:  make([]Interaction, 0, len(u.Interactions)),
	}

	for _, i := range u.Interactions {
		result.Questions = append(result.Questions, Interaction{
			Backend:   i.Backend,
			Question:  i.Question,
			Answer:    i.Answer,
			Timestamp: i.Timestamp.Format(time.RFC3339),
		})
	}

	writeJson(w, result)
}
