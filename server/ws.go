package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/gtonic/resumebot/pkg/authorizer"
)

type SocketRequest struct {
	Backend  string `json:"backend"`
	Question string `json:"question"`
}

type SocketResponse struct {
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,

	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket answers one question per text frame until the client
// hangs up.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, err := authorizer.User(r.Context(), r, s.Authorizers...)

	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	defer conn.Close()

	ctx := r.Context()

	for {
		messageType, payload, err := conn.ReadMessage()

		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.WithError(err).Warn("websocket closed")
			}

			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		var req SocketRequest
		var resp SocketResponse

		if err := json.Unmarshal(payload, &req); err != nil {
			resp.Error = "invalid request: " + err.Error()
		} else if answer, err := s.ask(ctx, user, req.Backend, req.Question); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Answer = answer
		}

		if err := conn.WriteJSON(&resp); err != nil {
			log.WithError(err).Warn("websocket write failed")
			return
		}
	}
}
