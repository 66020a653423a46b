// Package conversations exposes conversation browsing and management over
// HTTP.
package conversations

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pcouto/parlor/backend/internal/model/chat"
	conversationService "github.com/pcouto/parlor/backend/internal/service/conversation"
	sessionService "github.com/pcouto/parlor/backend/internal/service/session"
	"github.com/pcouto/parlor/backend/pkg/utils"
)

// Handler serves the sidebar: folder-filtered listings, transcript loading,
// move and delete.
type Handler struct {
	conversations *conversationService.Service
	session       *sessionService.Service
}

// New creates the conversations handler.
func New(conversations *conversationService.Service, session *sessionService.Service) *Handler {
	return &Handler{conversations: conversations, session: session}
}

// RegisterRoutes mounts the conversation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations", h.handleList)
	r.Get("/conversations/{conversationID}", h.handleLoad)
	r.Delete("/conversations/{conversationID}", h.handleDelete)
	r.Post("/conversations/{conversationID}/move", h.handleMove)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	folderID := r.URL.Query().Get("folder")
	if folderID == "" {
		folderID = chat.DefaultFolderID
	}
	query := r.URL.Query().Get("q")

	result := h.conversations.ListByFolder(r.Context(), folderID, query)
	utils.RespondJSON(w, http.StatusOK, result)
}

// handleLoad returns a stored transcript and makes it the active session
// conversation.
func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	messages := h.conversations.Load(r.Context(), id)
	h.session.LoadTranscript(r.Context(), messages, id)

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"conversationId": id,
		"messages":       messages,
		"totalTokens":    h.session.TotalTokens(),
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.conversations.Delete(r.Context(), chi.URLParam(r, "conversationID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FolderID string `json:"folderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.FolderID == "" {
		utils.RespondError(w, http.StatusBadRequest, "folderId is required")
		return
	}

	h.conversations.MoveToFolder(r.Context(), chi.URLParam(r, "conversationID"), payload.FolderID)
	w.WriteHeader(http.StatusNoContent)
}
