package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Danveyd/NewCatroid/internal/auth"
	"github.com/Danveyd/NewCatroid/internal/geom"
	"github.com/Danveyd/NewCatroid/internal/scene"
)

const maxBodySize = 4 << 20 // 4MB

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name   string       `json:"name"`
	Sample bool         `json:"sample"`
	Scene  *scene.Scene `json:"scene"`
}

type operationsRequest struct {
	Operations []scene.Operation `json:"operations"`
}

type sensorsRequest struct {
	Touches []geom.Point2 `json:"touches"`
	Radius  float32       `json:"radius"`
}

// Register mounts the public geometry routes on r and the scene routes on
// the authenticated subrouter.
func Register(r, authed *mux.Router, geometry *GeometryHandler, scenes *Handler) {
	r.HandleFunc("/api/geometry/transform", geometry.Transform).Methods("POST")
	r.HandleFunc("/api/geometry/bounds", geometry.Bounds).Methods("POST")
	r.HandleFunc("/api/collide", geometry.Collide).Methods("POST")
	r.HandleFunc("/api/collide/pairs", geometry.CollidePairs).Methods("POST")

	authed.HandleFunc("/scenes", scenes.List).Methods("GET")
	authed.HandleFunc("/scenes", scenes.Create).Methods("POST")
	authed.HandleFunc("/scenes/{sceneId}", scenes.Get).Methods("GET")
	authed.HandleFunc("/scenes/{sceneId}", scenes.Replace).Methods("PUT")
	authed.HandleFunc("/scenes/{sceneId}", scenes.Delete).Methods("DELETE")
	authed.HandleFunc("/scenes/{sceneId}/operations", scenes.Apply).Methods("POST")
	authed.HandleFunc("/scenes/{sceneId}/collisions", scenes.Collisions).Methods("GET")
	authed.HandleFunc("/scenes/{sceneId}/hit", scenes.HitTest).Methods("GET")
	authed.HandleFunc("/scenes/{sceneId}/sprites/{spriteId}/sensors", scenes.Sensors).Methods("POST")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" && req.Scene == nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	sc, err := h.service.Create(r.Context(), userID, req.Name, req.Scene, req.Sample)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sc)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	sc, err := h.service.Get(r.Context(), mux.Vars(r)["sceneId"], userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	scenes, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, scenes)
}

func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var sc scene.Scene
	if !decodeJSON(w, r, &sc) {
		return
	}

	updated, err := h.service.Replace(r.Context(), mux.Vars(r)["sceneId"], userID, &sc)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	if err := h.service.Delete(r.Context(), mux.Vars(r)["sceneId"], userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req operationsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sc, err := h.service.Apply(r.Context(), mux.Vars(r)["sceneId"], userID, req.Operations)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

func (h *Handler) Collisions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	pairs, err := h.service.Collisions(r.Context(), mux.Vars(r)["sceneId"], userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]scene.SpritePair{"pairs": pairs})
}

func (h *Handler) HitTest(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 32)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 32)
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "x and y are required numbers")
		return
	}

	spriteID, err := h.service.HitTest(r.Context(), mux.Vars(r)["sceneId"], userID, float32(x), float32(y))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"spriteId": spriteID})
}

func (h *Handler) Sensors(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	vars := mux.Vars(r)

	var req sensorsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sensors, err := h.service.Sensors(r.Context(), vars["sceneId"], userID, vars["spriteId"], req.Touches, req.Radius)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sensors)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
