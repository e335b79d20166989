package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gtonic/resumebot/config"
)

type Server struct {
	*config.Config
	http.Handler

	server *http.Server
}

// New serves the query API.
func New(cfg *config.Config) (*Server, error) {
	s := &Server{
		Config: cfg,
	}

	r := newRouter(cfg)

	r.Get("/health", s.handleHealth)

	r.Post("/ask/{backend}", s.handleAsk)
	r.Post("/ask_{backend}", s.handleAsk)

	r.Get("/people", s.handlePeople)

	r.Post("/vote", s.handleVote)
	r.Get("/votes", s.handleVotes)

	r.Get("/users/me", s.handleUser)

	if cfg.WebSocket {
		r.Get("/ws", s.handleWebSocket)
	}

	if cfg.MCP {
		r.Handle("/mcp", s.mcpHandler())
	}

	s.Handler = r
	s.server = newHTTPServer(cfg.Address, r)

	return s, nil
}

func newRouter(cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	return r
}

func newHTTPServer(address string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    address,
		Handler: otelhttp.NewHandler(handler, "resumebot"),

		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("request")
	})
}
