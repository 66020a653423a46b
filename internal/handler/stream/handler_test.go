package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pcouto/parlor/backend/internal/model/chat"
	"github.com/pcouto/parlor/backend/internal/service/ai"
	"github.com/pcouto/parlor/backend/internal/service/conversation"
	"github.com/pcouto/parlor/backend/internal/service/folder"
	sessionService "github.com/pcouto/parlor/backend/internal/service/session"
	"github.com/pcouto/parlor/backend/internal/storage"
)

type fakeGateway struct{}

func (g *fakeGateway) Generate(_ context.Context, _ []chat.Message, _ string) (*ai.Reply, error) {
	return &ai.Reply{
		Message: chat.Message{
			ID:        "reply-1",
			Role:      chat.RoleAssistant,
			Content:   "streamed reply",
			Timestamp: time.Now().UTC(),
			Tokens:    3,
		},
		Usage: ai.Usage{CompletionTokens: 3, TotalTokens: 3},
	}, nil
}

func (g *fakeGateway) IsConfigured() bool { return true }
func (g *fakeGateway) Model() string      { return "test-model" }

func newHandler(gateway sessionService.Gateway) *Handler {
	store := storage.NewMemoryStore()
	folderSvc := folder.NewService(store)
	conversationSvc := conversation.NewService(store, folderSvc)
	folderSvc.SetReassigner(conversationSvc)
	return New(sessionService.NewService(gateway, conversationSvc))
}

func TestStreamEmitsEventSequence(t *testing.T) {
	handler := newHandler(&fakeGateway{})
	resp := httptest.NewRecorder()

	if err := handler.HandleStreamRequest(context.Background(), resp, "Hello"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	body := resp.Body.String()
	for _, event := range []string{"event: start", "event: message", "event: usage", "event: done"} {
		if !strings.Contains(body, event) {
			t.Fatalf("missing %q in stream:\n%s", event, body)
		}
	}
	if !strings.Contains(body, "streamed reply") {
		t.Fatalf("reply content missing from stream:\n%s", body)
	}
}

func TestStreamEmitsErrorEventWhenUnconfigured(t *testing.T) {
	handler := newHandler(nil)
	resp := httptest.NewRecorder()

	if err := handler.HandleStreamRequest(context.Background(), resp, "Hello"); err == nil {
		t.Fatal("expected send failure")
	}

	body := resp.Body.String()
	if !strings.Contains(body, "event: error") {
		t.Fatalf("missing error event in stream:\n%s", body)
	}
	if strings.Contains(body, "event: done") {
		t.Fatalf("a failed send must not emit done:\n%s", body)
	}
}
