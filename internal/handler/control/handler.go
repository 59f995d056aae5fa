package control

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voicebridge/voicebridge/internal/service/stream"
	"github.com/voicebridge/voicebridge/pkg/logger"
	"github.com/voicebridge/voicebridge/pkg/netutil"
	"github.com/voicebridge/voicebridge/pkg/utils"
)

// Handler exposes the stream server lifecycle to the host UI.
type Handler struct {
	server      *stream.Server
	defaultPort int
	logger      logger.Logger
}

// New creates the control handler. defaultPort is used when a start
// request names no port; 0 keeps ephemeral assignment.
func New(server *stream.Server, defaultPort int, log logger.Logger) *Handler {
	return &Handler{server: server, defaultPort: defaultPort, logger: log}
}

// RegisterRoutes registers server lifecycle routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/server/start", h.handleStart)
	r.Post("/server/stop", h.handleStop)
	r.Get("/server/status", h.handleStatus)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	port := h.defaultPort
	var payload struct {
		Port *int `json:"port"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && err != io.EOF {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Port != nil {
		if *payload.Port < 0 || *payload.Port > 65535 {
			utils.RespondError(w, http.StatusBadRequest, "port out of range")
			return
		}
		port = *payload.Port
	}

	if err := h.server.Start(port); err != nil {
		h.logger.Errorf("[control] start failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to start server")
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.status())
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := h.server.Stop(); err != nil {
		h.logger.Errorf("[control] stop failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to stop server")
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.status())
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.status())
}

// Status is the control-plane view of the stream server. URL is the
// address a mobile client should dial.
type Status struct {
	Running     bool   `json:"running"`
	Port        int    `json:"port,omitempty"`
	Connections int    `json:"connections"`
	URL         string `json:"url,omitempty"`
}

func (h *Handler) status() Status {
	st := Status{
		Running:     h.server.Running(),
		Port:        h.server.Port(),
		Connections: h.server.ConnectionCount(),
	}
	if st.Running {
		if ip, err := netutil.LocalIP(); err == nil {
			st.URL = fmt.Sprintf("ws://%s:%d/stream", ip, st.Port)
		} else {
			h.logger.Warnf("[control] local address discovery failed: %v", err)
		}
	}
	return st
}
