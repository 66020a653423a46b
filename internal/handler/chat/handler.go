// Package chat exposes the session controller over HTTP: send, clear,
// session state, export.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pcouto/parlor/backend/internal/service/ai"
	sessionService "github.com/pcouto/parlor/backend/internal/service/session"
	"github.com/pcouto/parlor/backend/pkg/utils"
)

// Handler serves the active chat session.
type Handler struct {
	session *sessionService.Service
}

// New creates the chat handler.
func New(session *sessionService.Service) *Handler {
	return &Handler{session: session}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/send", h.handleSend)
	r.Post("/chat/clear", h.handleClear)
	r.Get("/chat/session", h.handleSession)
	r.Get("/chat/export", h.handleExport)
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.session.Send(r.Context(), payload.Text)
	if err != nil {
		utils.RespondError(w, sendErrorStatus(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	h.session.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// handleSession reports the in-memory session state the frontend renders
// from.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"conversationId": h.session.ConversationID(),
		"messages":       h.session.Messages(),
		"totalTokens":    h.session.TotalTokens(),
		"error":          h.session.LastError(),
		"sending":        h.session.Sending(),
		"configured":     h.session.IsConfigured(),
		"model":          h.session.Model(),
	})
}

// handleExport offers the transcript snapshot as a dated JSON download.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	snapshot := h.session.Export(r.Context())

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to encode export")
		return
	}

	filename := fmt.Sprintf("chat-export-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// sendErrorStatus maps send failures onto HTTP statuses by kind.
func sendErrorStatus(err error) int {
	switch {
	case errors.Is(err, sessionService.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, sessionService.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, sessionService.ErrSendInFlight):
		return http.StatusConflict
	}

	var gwErr *ai.GatewayError
	if errors.As(err, &gwErr) {
		switch gwErr.Category {
		case ai.CategoryConfiguration:
			return http.StatusServiceUnavailable
		case ai.CategoryQuota, ai.CategoryRateLimit:
			return http.StatusTooManyRequests
		default:
			return http.StatusBadGateway
		}
	}
	return http.StatusBadGateway
}
