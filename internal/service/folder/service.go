// Package folder implements the folder registry: named groups the sidebar
// organizes conversations into, with one undeletable default entry.
package folder

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pcouto/parlor/backend/internal/model/chat"
	"github.com/pcouto/parlor/backend/internal/storage"
)

// Reassigner moves every conversation out of a folder before the folder
// record is dropped. Implemented by the conversation service.
type Reassigner interface {
	ReassignFolder(ctx context.Context, fromFolderID, toFolderID string) int
}

// Service encapsulates folder state management. Mutations are mirrored to the
// store; a failed write is logged, never surfaced.
type Service struct {
	mu       sync.RWMutex
	store    storage.Store
	folders  []chat.Folder
	reassign Reassigner
	now      func() time.Time
}

// NewService rehydrates folder state from the store. Records that fail
// validation are dropped, and the default folder is synthesized whenever it
// is missing, so the registry is usable regardless of what was persisted.
func NewService(store storage.Store) *Service {
	s := &Service{store: store, now: time.Now}
	s.folders = s.rehydrate()
	if !s.hasDefault() {
		s.folders = append([]chat.Folder{{
			ID:         chat.DefaultFolderID,
			Name:       chat.DefaultFolderName,
			IsExpanded: true,
			CreatedAt:  s.now().UTC(),
		}}, s.folders...)
		s.persistLocked()
	}
	return s
}

// SetReassigner wires the conversation service in after both services exist.
func (s *Service) SetReassigner(r Reassigner) {
	s.mu.Lock()
	s.reassign = r
	s.mu.Unlock()
}

// Create registers a new expanded folder and returns it.
func (s *Service) Create(_ context.Context, name string) (chat.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return chat.Folder{}, ErrNameRequired
	}

	f := chat.Folder{
		ID:         uuid.NewString(),
		Name:       name,
		IsExpanded: true,
		CreatedAt:  s.now().UTC(),
	}

	s.mu.Lock()
	s.folders = append(s.folders, f)
	s.persistLocked()
	s.mu.Unlock()

	return f, nil
}

// Rename replaces a folder's name in place. An empty name after trimming or
// an unknown id is a no-op.
func (s *Service) Rename(_ context.Context, id, newName string) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.folders {
		if s.folders[i].ID == id {
			s.folders[i].Name = newName
			s.persistLocked()
			return
		}
	}
}

// Delete removes a folder after reassigning its conversations to the default
// folder. Deleting the default folder or an unknown id is a no-op.
func (s *Service) Delete(ctx context.Context, id string) {
	if id == chat.DefaultFolderID {
		return
	}

	s.mu.Lock()
	idx := -1
	for i := range s.folders {
		if s.folders[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	reassign := s.reassign
	s.mu.Unlock()

	// Conversations move first so none is ever left pointing at a removed
	// folder.
	if reassign != nil {
		moved := reassign.ReassignFolder(ctx, id, chat.DefaultFolderID)
		if moved > 0 {
			log.Printf("[folder] reassigned %d conversation(s) from %s to %s", moved, id, chat.DefaultFolderID)
		}
	}

	s.mu.Lock()
	for i := range s.folders {
		if s.folders[i].ID == id {
			s.folders = append(s.folders[:i], s.folders[i+1:]...)
			break
		}
	}
	s.persistLocked()
	s.mu.Unlock()
}

// ToggleExpanded flips the expand/collapse flag. Unknown id is a no-op.
func (s *Service) ToggleExpanded(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.folders {
		if s.folders[i].ID == id {
			s.folders[i].IsExpanded = !s.folders[i].IsExpanded
			s.persistLocked()
			return
		}
	}
}

// List returns the registered folders in creation order.
func (s *Service) List(_ context.Context) []chat.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]chat.Folder(nil), s.folders...)
}

// Get looks up a folder by id.
func (s *Service) Get(_ context.Context, id string) (chat.Folder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.folders {
		if f.ID == id {
			return f, true
		}
	}
	return chat.Folder{}, false
}

// Exists reports whether id resolves to a live folder.
func (s *Service) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.folders {
		if f.ID == id {
			return true
		}
	}
	return false
}

func (s *Service) hasDefault() bool {
	for _, f := range s.folders {
		if f.ID == chat.DefaultFolderID {
			return true
		}
	}
	return false
}
