// Package session implements the session controller: the single active
// transcript, the send state machine, and the bridge between user input and
// the model gateway.
package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pcouto/parlor/backend/internal/model/chat"
	"github.com/pcouto/parlor/backend/internal/service/ai"
	"github.com/pcouto/parlor/backend/internal/service/conversation"
)

var (
	// ErrEmptyMessage rejects a send whose text is empty after sanitizing.
	ErrEmptyMessage = errors.New("message cannot be empty")
	// ErrNotConfigured rejects sends while model credentials are missing.
	ErrNotConfigured = errors.New("model is not configured")
	// ErrSendInFlight rejects overlapping sends; at most one model call runs
	// per session.
	ErrSendInFlight = errors.New("a send is already in flight")
)

// maxInputRunes caps a single user turn before it reaches the model.
const maxInputRunes = 4000

// Gateway is the outbound model-call boundary consumed by the controller.
type Gateway interface {
	Generate(ctx context.Context, history []chat.Message, userInput string) (*ai.Reply, error)
	IsConfigured() bool
	Model() string
}

// Result is what a successful send hands back to the transport layer.
type Result struct {
	ConversationID string       `json:"conversationId"`
	Reply          chat.Message `json:"reply"`
	Usage          ai.Usage     `json:"usage"`
}

// Snapshot is the export artifact: the transcript frozen at a point in time.
type Snapshot struct {
	Messages    []chat.Message `json:"messages"`
	TotalTokens int            `json:"totalTokens"`
	ExportedAt  string         `json:"exportedAt"`
	Model       string         `json:"model"`
}

// Service tracks the active transcript and drives sends through the gateway.
// The transcript lives here; the conversation store only sees completed
// mutations.
type Service struct {
	mu             sync.Mutex
	gateway        Gateway
	conversations  *conversation.Service
	messages       []chat.Message
	sending        bool
	lastError      string
	totalTokens    int
	conversationID string
	now            func() time.Time
}

// NewService wires the controller to its gateway and conversation store. A
// nil gateway leaves the session alive but unable to send.
func NewService(gateway Gateway, conversations *conversation.Service) *Service {
	return &Service{
		gateway:       gateway,
		conversations: conversations,
		now:           time.Now,
	}
}

// Resume reloads the conversation the previous process run was on, if any.
func (s *Service) Resume(ctx context.Context) {
	id := s.conversations.CurrentID()
	if id == "" {
		return
	}
	messages := s.conversations.Load(ctx, id)
	s.LoadTranscript(ctx, messages, id)
	log.Printf("[session] resumed conversation %s with %d message(s)", id, len(messages))
}

// Send appends a user turn, calls the model, appends the reply, and persists
// the updated transcript. On gateway failure the user turn stays in the
// transcript, the failure becomes the session error, and the controller
// returns to idle.
func (s *Service) Send(ctx context.Context, text string) (*Result, error) {
	input := sanitizeInput(text)
	if input == "" {
		return nil, ErrEmptyMessage
	}
	if !s.IsConfigured() {
		return nil, ErrNotConfigured
	}

	userMsg := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Content:   input,
		Timestamp: s.now().UTC(),
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return nil, ErrSendInFlight
	}
	s.sending = true
	s.lastError = ""
	history := append([]chat.Message(nil), s.messages...)
	s.messages = append(s.messages, userMsg)
	convID := s.conversationID
	s.mu.Unlock()

	if convID == "" {
		conv := s.conversations.Create(ctx, &userMsg)
		convID = conv.ID
		s.mu.Lock()
		s.conversationID = convID
		s.mu.Unlock()
	}

	reply, err := s.gateway.Generate(ctx, history, input)
	if err != nil {
		s.mu.Lock()
		s.sending = false
		s.lastError = err.Error()
		s.mu.Unlock()
		log.Printf("[session] send failed for conversation %s: %v", convID, err)
		return nil, err
	}

	s.mu.Lock()
	if s.conversationID != convID {
		// The session was cleared or switched while the call was in flight;
		// the reply has no transcript to land in.
		s.sending = false
		s.mu.Unlock()
		log.Printf("[session] dropping reply for stale conversation %s", convID)
		return &Result{ConversationID: convID, Reply: reply.Message, Usage: reply.Usage}, nil
	}
	s.messages = append(s.messages, reply.Message)
	s.totalTokens += reply.Usage.TotalTokens
	transcript := append([]chat.Message(nil), s.messages...)
	s.sending = false
	s.mu.Unlock()

	s.conversations.Update(ctx, convID, transcript)

	return &Result{ConversationID: convID, Reply: reply.Message, Usage: reply.Usage}, nil
}

// Clear resets the in-memory session: empty transcript, no error, zero token
// total, no current conversation. Persisted records are untouched.
func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	s.messages = nil
	s.lastError = ""
	s.totalTokens = 0
	s.conversationID = ""
	s.mu.Unlock()

	s.conversations.ClearCurrent(ctx)
}

// LoadTranscript replaces the in-memory transcript with a stored one,
// recomputing the token total from per-message counts. A non-empty id is
// adopted as the current conversation.
func (s *Service) LoadTranscript(_ context.Context, messages []chat.Message, id string) {
	total := 0
	for _, msg := range messages {
		total += msg.Tokens
	}

	s.mu.Lock()
	s.messages = append([]chat.Message(nil), messages...)
	s.lastError = ""
	s.totalTokens = total
	if id != "" {
		s.conversationID = id
	}
	s.mu.Unlock()
}

// Export freezes the current transcript into a downloadable snapshot. No
// session state changes.
func (s *Service) Export(_ context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	model := ""
	if s.gateway != nil {
		model = s.gateway.Model()
	}
	return Snapshot{
		Messages:    append([]chat.Message(nil), s.messages...),
		TotalTokens: s.totalTokens,
		ExportedAt:  s.now().UTC().Format(time.RFC3339),
		Model:       model,
	}
}

// Messages returns a copy of the active transcript.
func (s *Service) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

// TotalTokens returns the running token total for the session.
func (s *Service) TotalTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalTokens
}

// LastError returns the current session error, or "" when none is set.
func (s *Service) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// ConversationID returns the current conversation id, or "" for an unsaved
// session.
func (s *Service) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Sending reports whether a model call is in flight.
func (s *Service) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// IsConfigured reports whether the gateway can accept sends.
func (s *Service) IsConfigured() bool {
	return s.gateway != nil && s.gateway.IsConfigured()
}

// Model returns the gateway's model identifier, or "" without a gateway.
func (s *Service) Model() string {
	if s.gateway == nil {
		return ""
	}
	return s.gateway.Model()
}

// sanitizeInput trims, collapses whitespace runs, and caps the input length.
func sanitizeInput(input string) string {
	collapsed := strings.Join(strings.Fields(input), " ")
	runes := []rune(collapsed)
	if len(runes) > maxInputRunes {
		collapsed = string(runes[:maxInputRunes])
	}
	return collapsed
}
