package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voicebridge/voicebridge/internal/service/identity"
	"github.com/voicebridge/voicebridge/internal/service/stream"
	"github.com/voicebridge/voicebridge/pkg/logger"
	"github.com/voicebridge/voicebridge/pkg/utils"
)

// Handler serves login/signup and keeps the stream server's owner in sync
// with the signed-in user.
type Handler struct {
	users  identity.Store
	server *stream.Server
	logger logger.Logger
}

// New creates the auth handler. A nil store disables authentication.
func New(users identity.Store, server *stream.Server, log logger.Logger) *Handler {
	return &Handler{users: users, server: server, logger: log}
}

// RegisterRoutes registers auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/signup", h.handleSignup)
	r.Post("/auth/logout", h.handleLogout)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "authentication not configured")
		return
	}

	var payload credentials
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.Authenticate(r.Context(), payload.Email, payload.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		utils.RespondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		h.logger.Errorf("[auth] login failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.server.SetOwner(user.Username)
	utils.RespondJSON(w, http.StatusOK, user)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "authentication not configured")
		return
	}

	var payload credentials
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	// Same convention as the login form: username is the local part.
	username := payload.Email
	if i := strings.IndexByte(username, '@'); i > 0 {
		username = username[:i]
	}

	user, err := h.users.Register(r.Context(), username, payload.Email, payload.Password)
	if errors.Is(err, identity.ErrEmailTaken) {
		utils.RespondError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		h.logger.Errorf("[auth] signup failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	h.server.SetOwner(user.Username)
	utils.RespondJSON(w, http.StatusCreated, user)
}

// handleLogout clears the owner and stops the stream server if running.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.server.SetOwner("")
	if h.server.Running() {
		if err := h.server.Stop(); err != nil {
			h.logger.Errorf("[auth] stopping server on logout: %v", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
