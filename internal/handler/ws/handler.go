// Package ws serves chat over a websocket: user messages in, replies and
// errors out, sharing the same session controller as the REST surface.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	sessionService "github.com/pcouto/parlor/backend/internal/service/session"
)

// Handler upgrades connections and pumps messages through the session.
type Handler struct {
	session  *sessionService.Service
	upgrader websocket.Upgrader
}

// New creates the websocket handler.
func New(session *sessionService.Service) *Handler {
	return &Handler{
		session: session,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/ws", h.handleWebSocket)
}

type inboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outboundFrame struct {
	Type           string      `json:"type"`
	Data           interface{} `json:"data,omitempty"`
	Error          string      `json:"error,omitempty"`
	ConversationID string      `json:"conversationId,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] connection opened from %s", r.RemoteAddr)

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}

		switch frame.Type {
		case "message":
			h.handleMessage(r, conn, frame.Text)
		case "clear":
			h.session.Clear(r.Context())
			h.write(conn, outboundFrame{Type: "cleared"})
		case "ping":
			h.write(conn, outboundFrame{Type: "pong"})
		default:
			h.write(conn, outboundFrame{Type: "error", Error: "unknown frame type"})
		}
	}
}

func (h *Handler) handleMessage(r *http.Request, conn *websocket.Conn, text string) {
	result, err := h.session.Send(r.Context(), text)
	if err != nil {
		h.write(conn, outboundFrame{Type: "error", Error: err.Error()})
		return
	}

	h.write(conn, outboundFrame{
		Type:           "reply",
		Data:           result.Reply,
		ConversationID: result.ConversationID,
	})
	h.write(conn, outboundFrame{
		Type: "usage",
		Data: map[string]interface{}{
			"usage":       result.Usage,
			"totalTokens": h.session.TotalTokens(),
		},
	})
}

func (h *Handler) write(conn *websocket.Conn, frame outboundFrame) {
	frame.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[ws] failed to marshal frame: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[ws] write failed: %v", err)
	}
}
