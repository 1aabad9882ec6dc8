package session

import (
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Authorizer decides who may join a scene. It returns ErrUnauthorized or
// ErrForbidden to refuse.
type Authorizer func(r *http.Request, sceneID string) (userID, displayName string, err error)

// ServeWS upgrades /ws/scene/{sceneId} requests and attaches the client to
// the scene's room.
func (h *Hub) ServeWS(authorize Authorizer, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sceneID := mux.Vars(r)["sceneId"]

		userID, displayName, err := authorize(r, sceneID)
		switch {
		case errors.Is(err, ErrUnauthorized):
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		case errors.Is(err, ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		case err != nil:
			h.logger.Error("authorize websocket", "scene", sceneID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if err := h.Open(r.Context(), sceneID); err != nil {
			h.logger.Warn("open scene room", "scene", sceneID, "error", err)
			http.Error(w, "scene unavailable", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			h.Release(sceneID)
			h.logger.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(h, conn, userID, displayName, sceneID, uuid.New().String())
		if err := h.Register(client); err != nil {
			h.Release(sceneID)
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		ctx := r.Context()
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}
