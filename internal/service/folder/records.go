package folder

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/pcouto/parlor/backend/internal/model/chat"
	"github.com/pcouto/parlor/backend/internal/storage"
)

// ErrNameRequired rejects folder creation with a blank name.
var ErrNameRequired = errors.New("folder name is required")

// folderRecord is the persisted shape of a folder. Timestamps travel as
// RFC 3339 text and are validated on the way back in.
type folderRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsExpanded bool   `json:"isExpanded"`
	CreatedAt  string `json:"createdAt"`
}

func toRecord(f chat.Folder) folderRecord {
	return folderRecord{
		ID:         f.ID,
		Name:       f.Name,
		IsExpanded: f.IsExpanded,
		CreatedAt:  f.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromRecord(rec folderRecord) (chat.Folder, bool) {
	if rec.ID == "" || rec.Name == "" {
		return chat.Folder{}, false
	}
	createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return chat.Folder{}, false
	}
	return chat.Folder{
		ID:         rec.ID,
		Name:       rec.Name,
		IsExpanded: rec.IsExpanded,
		CreatedAt:  createdAt,
	}, true
}

// rehydrate loads persisted folders, dropping any record that fails
// validation. Corruption never blocks startup.
func (s *Service) rehydrate() []chat.Folder {
	data, ok, err := s.store.Load(storage.KeyFolders)
	if err != nil {
		log.Printf("[folder] failed to load persisted folders: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	var records []folderRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("[folder] discarding corrupt folder state: %v", err)
		return nil
	}

	folders := make([]chat.Folder, 0, len(records))
	for _, rec := range records {
		f, valid := fromRecord(rec)
		if !valid {
			log.Printf("[folder] dropping invalid folder record %q", rec.ID)
			continue
		}
		folders = append(folders, f)
	}
	return folders
}

// persistLocked mirrors in-memory state to the store. Callers hold s.mu.
func (s *Service) persistLocked() {
	records := make([]folderRecord, 0, len(s.folders))
	for _, f := range s.folders {
		records = append(records, toRecord(f))
	}

	data, err := json.Marshal(records)
	if err != nil {
		log.Printf("[folder] failed to encode folders: %v", err)
		return
	}
	if err := s.store.Save(storage.KeyFolders, data); err != nil {
		log.Printf("[folder] failed to persist folders: %v", err)
	}
}
