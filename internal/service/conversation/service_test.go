package conversation_test

import (
	"context"
	"testing"
	"time"

	"github.com/pcouto/parlor/backend/internal/model/chat"
	"github.com/pcouto/parlor/backend/internal/service/conversation"
	"github.com/pcouto/parlor/backend/internal/service/folder"
	"github.com/pcouto/parlor/backend/internal/storage"
)

func newServices(t *testing.T) (*folder.Service, *conversation.Service) {
	t.Helper()
	store := storage.NewMemoryStore()
	folderSvc := folder.NewService(store)
	conversationSvc := conversation.NewService(store, folderSvc)
	folderSvc.SetReassigner(conversationSvc)
	return folderSvc, conversationSvc
}

func userMessage(id, content string) chat.Message {
	return chat.Message{ID: id, Role: chat.RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

func TestCreateSeedsConversation(t *testing.T) {
	_, svc := newServices(t)
	ctx := context.Background()

	initial := userMessage("m1", "Hello there")
	conv := svc.Create(ctx, &initial)

	if conv.Title != "Hello there" {
		t.Fatalf("unexpected title: %q", conv.Title)
	}
	if conv.FolderID != chat.DefaultFolderID {
		t.Fatalf("new conversation must land in the default folder, got %q", conv.FolderID)
	}
	if svc.CurrentID() != conv.ID {
		t.Fatal("new conversation must become current")
	}
	if len(conv.Messages) != 1 || conv.Messages[0].ID != "m1" {
		t.Fatalf("unexpected seeded transcript: %+v", conv.Messages)
	}
}

func TestCreateWithoutInitialMessage(t *testing.T) {
	_, svc := newServices(t)

	conv := svc.Create(context.Background(), nil)
	if conv.Title != chat.PlaceholderTitle {
		t.Fatalf("expected placeholder title, got %q", conv.Title)
	}
	if len(conv.Messages) != 0 {
		t.Fatalf("expected empty transcript, got %d messages", len(conv.Messages))
	}
}

func TestUpdateExistingConversation(t *testing.T) {
	_, svc := newServices(t)
	ctx := context.Background()

	initial := userMessage("m1", "First question")
	conv := svc.Create(ctx, &initial)

	messages := []chat.Message{
		initial,
		{ID: "m2", Role: chat.RoleAssistant, Content: "An answer", Timestamp: time.Now().UTC(), Tokens: 7},
	}
	if outcome := svc.Update(ctx, conv.ID, messages); outcome != conversation.OutcomeUpdated {
		t.Fatalf("expected updated, got %q", outcome)
	}

	got, ok := svc.Get(ctx, conv.ID)
	if !ok {
		t.Fatal("conversation must exist")
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if !got.LastActivity.After(conv.LastActivity) && !got.LastActivity.Equal(conv.LastActivity) {
		t.Fatal("last activity must not go backwards")
	}
}

func TestUpdateUnknownIDCreates(t *testing.T) {
	_, svc := newServices(t)
	ctx := context.Background()

	messages := []chat.Message{userMessage("m1", "Healed from a racing update")}
	if outcome := svc.Update(ctx, "orphan-id", messages); outcome != conversation.OutcomeCreated {
		t.Fatalf("expected created, got %q", outcome)
	}

	got, ok := svc.Get(ctx, "orphan-id")
	if !ok {
		t.Fatal("conversation must be synthesized under the given id")
	}
	if got.Title != "Healed from a racing update" {
		t.Fatalf("unexpected title: %q", got.Title)
	}
	if got.FolderID != chat.DefaultFolderID {
		t.Fatalf("synthesized conversation must use the default folder, got %q", got.FolderID)
	}
}

func TestUpdateSystemOnlyTranscriptIsSkipped(t *testing.T) {
	_, svc := newServices(t)
	ctx := context.Background()

	messages := []chat.Message{{ID: "s1", Role: chat.RoleSystem, Content: "prompt", Timestamp: time.Now()}}
	if outcome := svc.Update(ctx, "nothing-here", messages); outcome != conversation.OutcomeSkipped {
		t.Fatalf("expected skipped, got %q", outcome)
	}
	if _, ok := svc.Get(ctx, "nothing-here"); ok {
		t.Fatal("skipped update must not create a record")
	}
}

func TestWriteThenReadConsistency(t *testing.T) {
	_, svc := newServices(t)
	ctx := context.Background()

	initial := userMessage("m1", "Hello")
	conv := svc.Create(ctx, &initial)

	messages := []chat.Message{
		initial,
		{ID: "m2", Role: chat.RoleAssistant, Content: "Hi!", Timestamp: time.Now().UTC(), Tokens: 3},
		userMessage("m3", "Tell me more"),
	}
	svc.Update(ctx, conv.ID, messages)

	got := svc.Load(ctx, conv.ID)
	if len(got) != len(messages) {
		t.Fatalf("expected %d messages, got %d", len(messages), len(got))
	}
	for i := range messages {
		if got[i].ID != messages[i].ID || got[i].Content != messages[i].Content {
			t.Fatalf("message %d mismatch: %+v vs %+v", i, got[i], messages[i])
		}
	}
}

func TestLoadAdoptsCurrentAndUnknownIsEmpty(t *testing.T) {
	_, svc := newServices(t)
	ctx := context.Background()

	if got := svc.Load(ctx, "unknown"); len(got) != 0 {
		t.Fatalf("unknown id must load an empty transcript, got %d messages", len(got))
	}
	if svc.CurrentID() != "unknown" {
		t.Fatalf("load must adopt the id as current, got %q", svc.CurrentID())
	}
}

func TestDeleteClearsCurrent(t *testing.T) {
	_, svc := newServices(t)
	ctx := context.Background()

	initial := userMessage("m1", "Hello")
	conv := svc.Create(ctx, &initial)

	svc.Delete(ctx, conv.ID)
	if _, ok := svc.Get(ctx, conv.ID); ok {
		t.Fatal("conversation must be gone")
	}
	if svc.CurrentID() != "" {
		t.Fatalf("deleting the current conversation must clear the pointer, got %q", svc.CurrentID())
	}

	// Unknown id is a no-op.
	svc.Delete(ctx, "missing")
}

func TestMoveToFolderValidatesTarget(t *testing.T) {
	folderSvc, svc := newServices(t)
	ctx := context.Background()

	initial := userMessage("m1", "Hello")
	conv := svc.Create(ctx, &initial)

	svc.MoveToFolder(ctx, conv.ID, "no-such-folder")
	got, _ := svc.Get(ctx, conv.ID)
	if got.FolderID != chat.DefaultFolderID {
		t.Fatalf("move to unknown folder must be a no-op, got %q", got.FolderID)
	}

	work, err := folderSvc.Create(ctx, "Work")
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	svc.MoveToFolder(ctx, conv.ID, work.ID)
	got, _ = svc.Get(ctx, conv.ID)
	if got.FolderID != work.ID {
		t.Fatalf("expected move to %q, got %q", work.ID, got.FolderID)
	}
}

func TestListByFolderSortsByActivity(t *testing.T) {
	_, svc := newServices(t)
	ctx := context.Background()

	first := userMessage("m1", "oldest")
	a := svc.Create(ctx, &first)
	time.Sleep(2 * time.Millisecond)
	second := userMessage("m2", "middle")
	b := svc.Create(ctx, &second)
	time.Sleep(2 * time.Millisecond)
	third := userMessage("m3", "newest")
	c := svc.Create(ctx, &third)

	result := svc.ListByFolder(ctx, chat.DefaultFolderID, "")
	if len(result) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(result))
	}
	if result[0].ID != c.ID || result[1].ID != b.ID || result[2].ID != a.ID {
		t.Fatalf("unexpected order: %s, %s, %s", result[0].ID, result[1].ID, result[2].ID)
	}

	// Touching the oldest makes it the newest.
	time.Sleep(2 * time.Millisecond)
	svc.Update(ctx, a.ID, []chat.Message{first, userMessage("m4", "follow-up")})
	result = svc.ListByFolder(ctx, chat.DefaultFolderID, "")
	if result[0].ID != a.ID {
		t.Fatalf("updated conversation must sort first, got %s", result[0].ID)
	}
}

func TestListByFolderSearch(t *testing.T) {
	_, svc := newServices(t)
	ctx := context.Background()

	greeting := userMessage("m1", "Hello world")
	withGreeting := svc.Create(ctx, &greeting)
	invoice := userMessage("m2", "Где счёт за март?")
	withInvoice := svc.Create(ctx, &invoice)

	// Case-insensitive match on title.
	result := svc.ListByFolder(ctx, chat.DefaultFolderID, "HELLO")
	if len(result) != 1 || result[0].ID != withGreeting.ID {
		t.Fatalf("expected title match only, got %d results", len(result))
	}

	// Match on message content beyond the title: grow the transcript so the
	// matching text is not in the title.
	svc.Update(ctx, withInvoice.ID, []chat.Message{
		invoice,
		{ID: "m3", Role: chat.RoleAssistant, Content: "The invoice was sent on March 3rd.", Timestamp: time.Now().UTC()},
	})
	result = svc.ListByFolder(ctx, chat.DefaultFolderID, "march 3rd")
	if len(result) != 1 || result[0].ID != withInvoice.ID {
		t.Fatalf("expected content match, got %d results", len(result))
	}

	if result := svc.ListByFolder(ctx, chat.DefaultFolderID, "no such text"); len(result) != 0 {
		t.Fatalf("expected no matches, got %d", len(result))
	}
}

func TestFolderScenario(t *testing.T) {
	folderSvc, svc := newServices(t)
	ctx := context.Background()

	clients, err := folderSvc.Create(ctx, "Clients")
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	hello := userMessage("m1", "Hello")
	conv := svc.Create(ctx, &hello)
	svc.MoveToFolder(ctx, conv.ID, clients.ID)

	inClients := svc.ListByFolder(ctx, clients.ID, "")
	if len(inClients) != 1 || inClients[0].ID != conv.ID {
		t.Fatalf("expected exactly the moved conversation in Clients, got %d", len(inClients))
	}
	if inDefault := svc.ListByFolder(ctx, chat.DefaultFolderID, ""); len(inDefault) != 0 {
		t.Fatalf("default folder must be empty, got %d", len(inDefault))
	}
}

func TestRehydrateDropsInvalidRecords(t *testing.T) {
	store := storage.NewMemoryStore()
	state := `[
		{"id":"good","title":"Kept","messages":[
			{"id":"m1","role":"user","content":"hi","timestamp":"2026-01-02T10:00:00Z"},
			{"id":"m2","role":"alien","content":"dropped","timestamp":"2026-01-02T10:00:01Z"}
		],"folderId":"default","lastActivity":"2026-01-02T10:00:01Z","createdAt":"2026-01-02T10:00:00Z"},
		{"id":"bad","title":"Broken","messages":[],"folderId":"default","lastActivity":"garbage","createdAt":"2026-01-02T10:00:00Z"}
	]`
	if err := store.Save(storage.KeyConversations, []byte(state)); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	folderSvc := folder.NewService(store)
	svc := conversation.NewService(store, folderSvc)
	ctx := context.Background()

	got, ok := svc.Get(ctx, "good")
	if !ok {
		t.Fatal("valid record must survive rehydration")
	}
	if len(got.Messages) != 1 || got.Messages[0].ID != "m1" {
		t.Fatalf("invalid message must be dropped alone, got %d messages", len(got.Messages))
	}
	if _, ok := svc.Get(ctx, "bad"); ok {
		t.Fatal("record with invalid timestamp must be dropped")
	}
}

func TestCurrentPointerSurvivesRestart(t *testing.T) {
	store := storage.NewMemoryStore()
	folderSvc := folder.NewService(store)
	first := conversation.NewService(store, folderSvc)
	ctx := context.Background()

	hello := userMessage("m1", "Hello")
	conv := first.Create(ctx, &hello)

	second := conversation.NewService(store, folderSvc)
	if second.CurrentID() != conv.ID {
		t.Fatalf("current pointer must survive restart, got %q", second.CurrentID())
	}

	second.ClearCurrent(ctx)
	third := conversation.NewService(store, folderSvc)
	if third.CurrentID() != "" {
		t.Fatalf("cleared pointer must stay cleared, got %q", third.CurrentID())
	}
	if _, ok := third.Get(ctx, conv.ID); !ok {
		t.Fatal("clearing the pointer must not delete the record")
	}
}
