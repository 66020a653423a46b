package conversation

import (
	"encoding/json"
	"log"
	"time"

	"github.com/pcouto/parlor/backend/internal/model/chat"
	"github.com/pcouto/parlor/backend/internal/storage"
)

// Persisted shapes. Timestamps travel as RFC 3339 text; rehydration parses
// and validates rather than trusting the stored bytes.

type messageRecord struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Tokens    int    `json:"tokens,omitempty"`
}

type conversationRecord struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Messages     []messageRecord `json:"messages"`
	FolderID     string          `json:"folderId"`
	LastActivity string          `json:"lastActivity"`
	CreatedAt    string          `json:"createdAt"`
}

type currentRecord struct {
	ConversationID string `json:"conversationId"`
}

func toMessageRecord(m chat.Message) messageRecord {
	return messageRecord{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
		Tokens:    m.Tokens,
	}
}

func fromMessageRecord(rec messageRecord) (chat.Message, bool) {
	if rec.ID == "" || !chat.ValidRole(chat.Role(rec.Role)) || rec.Tokens < 0 {
		return chat.Message{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
	if err != nil {
		return chat.Message{}, false
	}
	return chat.Message{
		ID:        rec.ID,
		Role:      chat.Role(rec.Role),
		Content:   rec.Content,
		Timestamp: ts,
		Tokens:    rec.Tokens,
	}, true
}

func toRecord(conv chat.Conversation) conversationRecord {
	messages := make([]messageRecord, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		messages = append(messages, toMessageRecord(m))
	}
	return conversationRecord{
		ID:           conv.ID,
		Title:        conv.Title,
		Messages:     messages,
		FolderID:     conv.FolderID,
		LastActivity: conv.LastActivity.UTC().Format(time.RFC3339Nano),
		CreatedAt:    conv.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// fromRecord validates a persisted conversation. A record with a bad id,
// folder reference, or timestamp is rejected whole; a bad message inside an
// otherwise sound record is dropped alone.
func fromRecord(rec conversationRecord) (chat.Conversation, bool) {
	if rec.ID == "" || rec.FolderID == "" {
		return chat.Conversation{}, false
	}
	lastActivity, err := time.Parse(time.RFC3339Nano, rec.LastActivity)
	if err != nil {
		return chat.Conversation{}, false
	}
	createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return chat.Conversation{}, false
	}

	messages := make([]chat.Message, 0, len(rec.Messages))
	for _, mrec := range rec.Messages {
		m, valid := fromMessageRecord(mrec)
		if !valid {
			log.Printf("[conversation] dropping invalid message record %q in conversation %s", mrec.ID, rec.ID)
			continue
		}
		messages = append(messages, m)
	}

	title := rec.Title
	if title == "" {
		title = chat.TitleFromMessages(messages)
	}

	return chat.Conversation{
		ID:           rec.ID,
		Title:        title,
		Messages:     messages,
		FolderID:     rec.FolderID,
		LastActivity: lastActivity,
		CreatedAt:    createdAt,
	}, true
}

func (s *Service) rehydrate() []chat.Conversation {
	data, ok, err := s.store.Load(storage.KeyConversations)
	if err != nil {
		log.Printf("[conversation] failed to load persisted conversations: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	var records []conversationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("[conversation] discarding corrupt conversation state: %v", err)
		return nil
	}

	conversations := make([]chat.Conversation, 0, len(records))
	for _, rec := range records {
		conv, valid := fromRecord(rec)
		if !valid {
			log.Printf("[conversation] dropping invalid conversation record %q", rec.ID)
			continue
		}
		conversations = append(conversations, conv)
	}
	return conversations
}

func (s *Service) loadCurrent() string {
	data, ok, err := s.store.Load(storage.KeyCurrent)
	if err != nil {
		log.Printf("[conversation] failed to load current pointer: %v", err)
		return ""
	}
	if !ok {
		return ""
	}

	var rec currentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("[conversation] discarding corrupt current pointer: %v", err)
		return ""
	}
	return rec.ConversationID
}

// persistLocked mirrors the conversation list to the store. Callers hold s.mu.
func (s *Service) persistLocked() {
	records := make([]conversationRecord, 0, len(s.conversations))
	for _, conv := range s.conversations {
		records = append(records, toRecord(conv))
	}

	data, err := json.Marshal(records)
	if err != nil {
		log.Printf("[conversation] failed to encode conversations: %v", err)
		return
	}
	if err := s.store.Save(storage.KeyConversations, data); err != nil {
		log.Printf("[conversation] failed to persist conversations: %v", err)
	}
}

// persistCurrentLocked mirrors the current pointer, deleting the key when no
// conversation is active. Callers hold s.mu.
func (s *Service) persistCurrentLocked() {
	if s.currentID == "" {
		if err := s.store.Delete(storage.KeyCurrent); err != nil {
			log.Printf("[conversation] failed to clear current pointer: %v", err)
		}
		return
	}

	data, err := json.Marshal(currentRecord{ConversationID: s.currentID})
	if err != nil {
		log.Printf("[conversation] failed to encode current pointer: %v", err)
		return
	}
	if err := s.store.Save(storage.KeyCurrent, data); err != nil {
		log.Printf("[conversation] failed to persist current pointer: %v", err)
	}
}
