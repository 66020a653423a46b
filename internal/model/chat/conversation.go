package chat

import "time"

// PlaceholderTitle is used until a conversation has a non-system message to
// derive a title from.
const PlaceholderTitle = "New Conversation"

// titleLimit is the maximum number of visible characters in a derived title.
const titleLimit = 50

// Conversation groups a transcript with its sidebar metadata.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages"`
	FolderID     string    `json:"folderId"`
	LastActivity time.Time `json:"lastActivity"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DeriveTitle builds a conversation title from message content: the first 50
// characters, with an ellipsis marker appended when the content is longer.
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleLimit {
		return content
	}
	return string(runes[:titleLimit]) + "..."
}

// TitleFromMessages derives a title from the first non-system message, or the
// placeholder when none exists.
func TitleFromMessages(messages []Message) string {
	for _, msg := range messages {
		if msg.Role != RoleSystem {
			return DeriveTitle(msg.Content)
		}
	}
	return PlaceholderTitle
}

// HasNonSystemMessage reports whether the transcript contains at least one
// user or assistant turn.
func HasNonSystemMessage(messages []Message) bool {
	for _, msg := range messages {
		if msg.Role != RoleSystem {
			return true
		}
	}
	return false
}
