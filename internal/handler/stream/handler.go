// Package stream delivers a send over Server-Sent Events so the frontend can
// show progress while the model call is in flight. The reply itself is a
// single awaited message.
package stream

import (
	"context"
	"fmt"
	"net/http"

	sessionService "github.com/pcouto/parlor/backend/internal/service/session"
	"github.com/pcouto/parlor/backend/pkg/utils"
)

// Handler streams send results as SSE events.
type Handler struct {
	session *sessionService.Service
}

// New creates the stream handler.
func New(session *sessionService.Service) *Handler {
	return &Handler{session: session}
}

// HandleStreamRequest runs one send and reports it as a sequence of events:
// start, message, usage, done; or error.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, text string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	utils.SendSSEEvent(w, flusher, "start", map[string]string{
		"status": "sending",
	})

	result, err := h.session.Send(ctx, text)
	if err != nil {
		utils.SendSSEEvent(w, flusher, "error", map[string]string{
			"error": err.Error(),
		})
		return err
	}

	utils.SendSSEEvent(w, flusher, "message", result.Reply)
	utils.SendSSEEvent(w, flusher, "usage", map[string]interface{}{
		"usage":       result.Usage,
		"totalTokens": h.session.TotalTokens(),
	})
	utils.SendSSEEvent(w, flusher, "done", map[string]string{
		"conversationId": result.ConversationID,
	})
	return nil
}
