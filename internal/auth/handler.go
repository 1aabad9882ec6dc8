package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"
)

const (
	minPasswordLen = 8
	// Display names label pointers in live rooms.
	maxDisplayNameLen = 40
)

// badInput is a request problem the caller can fix; its text is returned
// as is.
type badInput string

func (e badInput) Error() string { return string(e) }

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, logger: slog.Default().With("component", "auth")}
}

// Routes mounts account creation and login on public and the current
// user lookup on authed.
func (h *Handler) Routes(public, authed *mux.Router) {
	public.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	public.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	authed.HandleFunc("/me", h.Me).Methods(http.MethodGet)
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func decodeCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, badInput("invalid request body")
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.DisplayName = strings.TrimSpace(c.DisplayName)
	if c.Email == "" || c.Password == "" {
		return c, badInput("email and password are required")
	}
	return c, nil
}

func (c credentials) validateNew() error {
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return badInput("invalid email")
	}
	if len(c.Password) < minPasswordLen {
		return badInput(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	if c.DisplayName == "" || utf8.RuneCountInString(c.DisplayName) > maxDisplayNameLen {
		return badInput(fmt.Sprintf("displayName must be 1 to %d characters", maxDisplayNameLen))
	}
	return nil
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err == nil {
		err = c.validateNew()
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.service.Register(r.Context(), c.Email, c.Password, c.DisplayName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), c.Email, c.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Me returns the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var bad badInput
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &bad):
		status = http.StatusBadRequest
	case errors.Is(err, ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound):
		status = http.StatusNotFound
	default:
		h.logger.Error("auth request failed", "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
