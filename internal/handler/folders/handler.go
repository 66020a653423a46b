// Package folders exposes the folder registry over HTTP.
package folders

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pcouto/parlor/backend/internal/model/chat"
	folderService "github.com/pcouto/parlor/backend/internal/service/folder"
	"github.com/pcouto/parlor/backend/pkg/utils"
)

// ConversationCounter reports folder occupancy for listings.
type ConversationCounter interface {
	CountByFolder(ctx context.Context, folderID string) int
}

// Handler serves folder CRUD.
type Handler struct {
	folders *folderService.Service
	counter ConversationCounter
}

// New creates the folder handler.
func New(folders *folderService.Service, counter ConversationCounter) *Handler {
	return &Handler{folders: folders, counter: counter}
}

// RegisterRoutes mounts the folder routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/folders", h.handleList)
	r.Post("/folders", h.handleCreate)
	r.Patch("/folders/{folderID}", h.handleRename)
	r.Delete("/folders/{folderID}", h.handleDelete)
	r.Post("/folders/{folderID}/toggle", h.handleToggle)
}

type folderView struct {
	chat.Folder
	ConversationCount int `json:"conversationCount"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	folders := h.folders.List(r.Context())
	views := make([]folderView, 0, len(folders))
	for _, f := range folders {
		count := 0
		if h.counter != nil {
			count = h.counter.CountByFolder(r.Context(), f.ID)
		}
		views = append(views, folderView{Folder: f, ConversationCount: count})
	}
	utils.RespondJSON(w, http.StatusOK, views)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := h.folders.Create(r.Context(), payload.Name)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, f)
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.folders.Rename(r.Context(), chi.URLParam(r, "folderID"), payload.Name)
	w.WriteHeader(http.StatusNoContent)
}

// handleDelete removes a folder. Deleting the default folder is accepted and
// ignored, matching the registry's no-op contract.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.folders.Delete(r.Context(), chi.URLParam(r, "folderID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	h.folders.ToggleExpanded(r.Context(), chi.URLParam(r, "folderID"))
	w.WriteHeader(http.StatusNoContent)
}
