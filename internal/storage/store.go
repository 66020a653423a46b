// Package storage provides the durable key/value medium the conversation and
// folder services persist into. Values are opaque JSON blobs; interpreting and
// validating them is the caller's concern.
package storage

// Keys for the three independently persisted records.
const (
	KeyConversations = "chat-conversations"
	KeyFolders       = "chat-folders"
	KeyCurrent       = "chat-current"
)

// Store is a synchronous key/value store. Load returns ok=false for a missing
// key; it never invents a value. A Save followed by a Load in the same
// process must observe the written value.
type Store interface {
	Load(key string) (value []byte, ok bool, err error)
	Save(key string, value []byte) error
	Delete(key string) error
	Close() error
}
