// Package ai is the outbound model-call boundary: it turns a transcript and a
// new user turn into a single assistant reply with token accounting.
package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/pcouto/parlor/backend/internal/config"
	"github.com/pcouto/parlor/backend/internal/model/chat"
)

// Usage is the token accounting for a single model call.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Reply is a successful gateway response: an assistant turn ready to append,
// plus the usage behind it.
type Reply struct {
	Message chat.Message `json:"message"`
	Usage   Usage        `json:"usage"`
}

// Service drives the model through a compiled prompt chain.
type Service struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	cfg     config.AIConfig
	profile Profile
}

// NewService creates the gateway. It fails only when the credentials are
// present but the model cannot be constructed; missing credentials are
// reported through IsConfigured instead.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chain:   runnable,
		cfg:     cfg,
		profile: NewProfile(cfg),
	}, nil
}

// IsConfigured reports whether model credentials are present. Send is gated
// on this.
func (s *Service) IsConfigured() bool {
	return s.cfg.Enabled()
}

// Model returns the model identifier embedded in export snapshots.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Generate sends the bounded transcript window plus the new user turn to the
// model and returns the assistant reply. Failures come back classified.
func (s *Service) Generate(ctx context.Context, history []chat.Message, userInput string) (*Reply, error) {
	if !s.IsConfigured() {
		return nil, newGatewayError(CategoryConfiguration,
			"Invalid or missing model credentials. Please check your configuration.", nil)
	}

	input := map[string]any{
		"system":  s.profile.SystemPrompt,
		"history": buildHistory(history, s.cfg.HistoryWindow),
		"query":   userInput,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return nil, Classify(fmt.Errorf("failed to run chat chain: %w", err))
	}

	if response == nil || response.Content == "" {
		return nil, newGatewayError(CategoryMalformed,
			"The model returned an empty response. Please try again.", nil)
	}

	usage := extractUsage(response)
	log.Printf("[ai] generated reply, model=%s, length=%d, tokens=%d", s.cfg.Model, len(response.Content), usage.TotalTokens)

	return &Reply{
		Message: chat.Message{
			ID:        uuid.NewString(),
			Role:      chat.RoleAssistant,
			Content:   response.Content,
			Timestamp: time.Now().UTC(),
			Tokens:    usage.CompletionTokens,
		},
		Usage: usage,
	}, nil
}

// buildHistory converts the most recent transcript turns into model messages.
// System turns never leave the process; the profile's system prompt is the
// only system content the model sees.
func buildHistory(messages []chat.Message, window int) []*schema.Message {
	if window <= 0 {
		window = 20
	}

	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > window {
		startIdx = len(messages) - window
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}

func extractUsage(response *schema.Message) Usage {
	if response.ResponseMeta == nil || response.ResponseMeta.Usage == nil {
		return Usage{}
	}
	u := response.ResponseMeta.Usage
	return Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
