package ai

import (
	"fmt"

	"github.com/pcouto/parlor/backend/internal/config"
)

// defaultSystemPrompt keeps the assistant usable without any prompt
// configuration.
const defaultSystemPrompt = `You are %s, a friendly and concise conversational assistant.

STYLE:
- Short sentences, no filler
- Professional when it matters, casual otherwise
- Answer directly before elaborating

RULES:
- Never invent facts; say so when unsure
- Stay on the user's topic
- Keep replies self-contained`

// Profile is the assistant identity prepended to every model call.
type Profile struct {
	Name         string
	SystemPrompt string
}

// NewProfile builds the assistant profile from configuration, falling back to
// the built-in prompt when none is supplied.
func NewProfile(cfg config.AIConfig) Profile {
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = fmt.Sprintf(defaultSystemPrompt, cfg.AssistantName)
	}
	return Profile{
		Name:         cfg.AssistantName,
		SystemPrompt: prompt,
	}
}
