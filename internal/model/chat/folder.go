package chat

import "time"

// DefaultFolderID is the reserved id of the folder every installation starts
// with. It can be renamed but never deleted, and conversations fall back to it
// when their folder is removed.
const DefaultFolderID = "default"

// DefaultFolderName is the initial display name of the default folder.
const DefaultFolderName = "General"

// Folder groups conversations in the sidebar. IsExpanded is presentation
// state but travels with the persisted record.
type Folder struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	IsExpanded bool      `json:"isExpanded"`
	CreatedAt  time.Time `json:"createdAt"`
}
