package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gtonic/resumebot/config"
)

type RebuildResponse struct {
	Status   string   `json:"status"`
	Entities []string `json:"entities"`
	Updated  string   `json:"updated"`
}

// NewManager serves the ingestion API. It needs a configured pipeline.
func NewManager(cfg *config.Config) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("missing ingestion pipeline")
	}

	s := &Server{
		Config: cfg,
	}

	r := newRouter(cfg)

	r.Get("/health", handleHealth)
	r.Post("/resumes", s.handleRebuild)

	s.Handler = r
	s.server = newHTTPServer(cfg.Address, r)

	return s, nil
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	result, err := s.Pipeline.Run(r.Context())

	if err != nil {
		writeError(w, err)
		return
	}

	entities := result.Entities

	if entities == nil {
		entities = []string{}
	}

	writeJson(w, &RebuildResponse{
		Status:   "ok",
		Entities: entities,
		Updated:  result.Updated.Format(time.RFC3339Nano),
	})
}
