package ai

import (
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/pcouto/parlor/backend/internal/model/chat"
)

func transcript(turns int) []chat.Message {
	messages := make([]chat.Message, 0, turns)
	for i := 0; i < turns; i++ {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		messages = append(messages, chat.Message{
			ID:      fmt.Sprintf("m%d", i),
			Role:    role,
			Content: fmt.Sprintf("turn %d", i),
		})
	}
	return messages
}

func TestBuildHistoryBoundedWindow(t *testing.T) {
	history := buildHistory(transcript(30), 20)
	if len(history) != 20 {
		t.Fatalf("expected 20 turns, got %d", len(history))
	}
	// The window keeps the most recent turns.
	if history[len(history)-1].Content != "turn 29" {
		t.Fatalf("unexpected last turn: %q", history[len(history)-1].Content)
	}
	if history[0].Content != "turn 10" {
		t.Fatalf("unexpected first turn: %q", history[0].Content)
	}
}

func TestBuildHistorySkipsSystemTurns(t *testing.T) {
	messages := []chat.Message{
		{ID: "s", Role: chat.RoleSystem, Content: "never forwarded"},
		{ID: "u", Role: chat.RoleUser, Content: "question"},
		{ID: "a", Role: chat.RoleAssistant, Content: "answer"},
	}

	history := buildHistory(messages, 20)
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0].Role != schema.User || history[1].Role != schema.Assistant {
		t.Fatalf("unexpected roles: %s, %s", history[0].Role, history[1].Role)
	}
}

func TestBuildHistoryDefaultsWindow(t *testing.T) {
	if got := buildHistory(transcript(25), 0); len(got) != 20 {
		t.Fatalf("zero window must default to 20, got %d", len(got))
	}
}

func TestBuildHistoryEmpty(t *testing.T) {
	if got := buildHistory(nil, 20); got != nil {
		t.Fatalf("expected nil history, got %d", len(got))
	}
}
