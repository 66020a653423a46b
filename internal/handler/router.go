package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/pcouto/parlor/backend/internal/handler/chat"
	conversationsHandler "github.com/pcouto/parlor/backend/internal/handler/conversations"
	foldersHandler "github.com/pcouto/parlor/backend/internal/handler/folders"
	streamHandler "github.com/pcouto/parlor/backend/internal/handler/stream"
	wsHandler "github.com/pcouto/parlor/backend/internal/handler/ws"
	middlewarePkg "github.com/pcouto/parlor/backend/internal/middleware"
	conversationService "github.com/pcouto/parlor/backend/internal/service/conversation"
	folderService "github.com/pcouto/parlor/backend/internal/service/folder"
	sessionService "github.com/pcouto/parlor/backend/internal/service/session"
	"github.com/pcouto/parlor/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(folders *folderService.Service, conversations *conversationService.Service, session *sessionService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		foldersHandler.New(folders, conversations).RegisterRoutes(api)
		conversationsHandler.New(conversations, session).RegisterRoutes(api)
		chatHandler.New(session).RegisterRoutes(api)
		wsHandler.New(session).RegisterRoutes(api)

		stream := streamHandler.New(session)
		api.Get("/chat/stream", func(w http.ResponseWriter, r *http.Request) {
			text := r.URL.Query().Get("message")
			if text == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}
			if err := stream.HandleStreamRequest(r.Context(), w, text); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}
