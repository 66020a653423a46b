// Package conversation implements the conversation store: transcript plus
// sidebar metadata per conversation, mirrored to durable storage on every
// mutation.
package conversation

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pcouto/parlor/backend/internal/model/chat"
	"github.com/pcouto/parlor/backend/internal/storage"
)

// Outcome tags what an Update call actually did.
type Outcome string

const (
	// OutcomeUpdated means the transcript of an existing conversation was
	// replaced.
	OutcomeUpdated Outcome = "updated"
	// OutcomeCreated means no conversation existed under the id and one was
	// synthesized from the transcript. Session creation and persistence can
	// race across component boundaries, so updates heal the missing record.
	OutcomeCreated Outcome = "created"
	// OutcomeSkipped means the transcript had no non-system message and the
	// update was ignored.
	OutcomeSkipped Outcome = "skipped"
)

// FolderChecker validates folder ids on reassignment. Implemented by the
// folder registry.
type FolderChecker interface {
	Exists(id string) bool
}

// Service encapsulates conversation state management. The in-memory slice is
// ordered most-recently-created first and is the source of truth; the store
// trails it by one write.
type Service struct {
	mu            sync.RWMutex
	store         storage.Store
	folders       FolderChecker
	conversations []chat.Conversation
	currentID     string
	now           func() time.Time
}

// NewService rehydrates conversation state and the current-conversation
// pointer from the store. Invalid records are dropped.
func NewService(store storage.Store, folders FolderChecker) *Service {
	s := &Service{store: store, folders: folders, now: time.Now}
	s.conversations = s.rehydrate()
	s.currentID = s.loadCurrent()
	return s
}

// Create mints a new conversation, optionally seeded with an initial message,
// and makes it the current one. The new conversation lands in the default
// folder at the head of the list.
func (s *Service) Create(_ context.Context, initial *chat.Message) chat.Conversation {
	now := s.now().UTC()

	conv := chat.Conversation{
		ID:           uuid.NewString(),
		Title:        chat.PlaceholderTitle,
		FolderID:     chat.DefaultFolderID,
		LastActivity: now,
		CreatedAt:    now,
	}
	if initial != nil {
		conv.Title = chat.DeriveTitle(initial.Content)
		conv.Messages = []chat.Message{*initial}
	}

	s.mu.Lock()
	s.conversations = append([]chat.Conversation{conv}, s.conversations...)
	s.currentID = conv.ID
	s.persistLocked()
	s.persistCurrentLocked()
	s.mu.Unlock()

	return conv
}

// Update replaces the transcript under id, recomputing the title from the
// first non-system message and bumping last activity. When id is unknown and
// the transcript carries at least one non-system message, a conversation is
// synthesized under that id; otherwise the call is skipped.
func (s *Service) Update(_ context.Context, id string, messages []chat.Message) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	for i := range s.conversations {
		if s.conversations[i].ID != id {
			continue
		}
		s.conversations[i].Title = chat.TitleFromMessages(messages)
		s.conversations[i].Messages = append([]chat.Message(nil), messages...)
		s.conversations[i].LastActivity = now
		s.persistLocked()
		return OutcomeUpdated
	}

	if !chat.HasNonSystemMessage(messages) {
		return OutcomeSkipped
	}

	conv := chat.Conversation{
		ID:           id,
		Title:        chat.TitleFromMessages(messages),
		Messages:     append([]chat.Message(nil), messages...),
		FolderID:     chat.DefaultFolderID,
		LastActivity: now,
		CreatedAt:    now,
	}
	s.conversations = append([]chat.Conversation{conv}, s.conversations...)
	s.persistLocked()
	return OutcomeCreated
}

// Load returns the stored transcript for id, or an empty one when the id is
// unknown, and adopts id as the current conversation either way. An unknown
// id may still be healed by a later Update.
func (s *Service) Load(_ context.Context, id string) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentID = id
	s.persistCurrentLocked()

	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return append([]chat.Message(nil), s.conversations[i].Messages...)
		}
	}
	return nil
}

// Delete removes the conversation record. Deleting the current conversation
// clears the current pointer; an unknown id is a no-op.
func (s *Service) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.conversations {
		if s.conversations[i].ID == id {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			if s.currentID == id {
				s.currentID = ""
				s.persistCurrentLocked()
			}
			s.persistLocked()
			return
		}
	}
}

// MoveToFolder reassigns a conversation to another folder. A target folder
// that does not exist is a no-op rather than a dangling reference.
func (s *Service) MoveToFolder(_ context.Context, id, folderID string) {
	if s.folders != nil && !s.folders.Exists(folderID) {
		log.Printf("[conversation] refusing move of %s to unknown folder %q", id, folderID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			s.conversations[i].FolderID = folderID
			s.persistLocked()
			return
		}
	}
}

// ReassignFolder moves every conversation in fromFolderID to toFolderID and
// returns how many moved. Used by the folder registry during folder deletion.
func (s *Service) ReassignFolder(_ context.Context, fromFolderID, toFolderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	moved := 0
	for i := range s.conversations {
		if s.conversations[i].FolderID == fromFolderID {
			s.conversations[i].FolderID = toFolderID
			moved++
		}
	}
	if moved > 0 {
		s.persistLocked()
	}
	return moved
}

// ListByFolder returns the conversations in a folder, optionally filtered by
// a case-insensitive substring match against title or message content, sorted
// by last activity, newest first. Equal timestamps keep their prior relative
// order.
func (s *Service) ListByFolder(_ context.Context, folderID, query string) []chat.Conversation {
	query = strings.ToLower(query)

	s.mu.RLock()
	result := make([]chat.Conversation, 0)
	for _, conv := range s.conversations {
		if conv.FolderID != folderID {
			continue
		}
		if query != "" && !matchesQuery(conv, query) {
			continue
		}
		conv.Messages = append([]chat.Message(nil), conv.Messages...)
		result = append(result, conv)
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastActivity.After(result[j].LastActivity)
	})
	return result
}

// CountByFolder returns how many conversations live in a folder.
func (s *Service) CountByFolder(_ context.Context, folderID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, conv := range s.conversations {
		if conv.FolderID == folderID {
			count++
		}
	}
	return count
}

// Get looks up a single conversation by id.
func (s *Service) Get(_ context.Context, id string) (chat.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conv := range s.conversations {
		if conv.ID == id {
			conv.Messages = append([]chat.Message(nil), conv.Messages...)
			return conv, true
		}
	}
	return chat.Conversation{}, false
}

// CurrentID returns the current conversation id, or "" when none is active.
func (s *Service) CurrentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

// ClearCurrent drops the current-conversation pointer without touching any
// persisted conversation record.
func (s *Service) ClearCurrent(_ context.Context) {
	s.mu.Lock()
	s.currentID = ""
	s.persistCurrentLocked()
	s.mu.Unlock()
}

func matchesQuery(conv chat.Conversation, query string) bool {
	if strings.Contains(strings.ToLower(conv.Title), query) {
		return true
	}
	for _, msg := range conv.Messages {
		if strings.Contains(strings.ToLower(msg.Content), query) {
			return true
		}
	}
	return false
}
