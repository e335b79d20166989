package server

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/gtonic/resumebot/pkg/authorizer"
	"github.com/gtonic/resumebot/pkg/blob"
	"github.com/gtonic/resumebot/pkg/history"
	"github.com/gtonic/resumebot/pkg/refresh"
)

var (
	// ErrNoResumes is returned by resume backends while the index is empty.
	ErrNoResumes = errors.New("No resumes found in the database. Please upload resumes.")

	errBadRequest = errors.New("bad request")
	errQuery      = errors.New("error querying LLM")
)

func statusCode(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest

	case errors.Is(err, authorizer.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, refresh.ErrUnavailable),
		errors.Is(err, blob.ErrNotFound),
		errors.Is(err, ErrNoResumes),
		errors.Is(err, errQuery):
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func writeJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)

	if code >= http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	json.NewEncoder(w).Encode(map[string]string{
		"detail": err.Error(),
	})
}
