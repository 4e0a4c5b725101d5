// Package llm provides a provider-agnostic interface for LLM interactions
package llm

import (
	"github.com/pkg/errors"

	"github.com/abonvalle/hf-agent-course/pkg/llm/anthropic"
	"github.com/abonvalle/hf-agent-course/pkg/llm/openai"
	llmtypes "github.com/abonvalle/hf-agent-course/pkg/types/llm"
)

// NewThread creates a new conversation thread based on the configured provider
func NewThread(config llmtypes.Config) (llmtypes.Thread, error) {
	switch config.Provider {
	case "anthropic":
		return anthropic.NewAnthropicThread(config)
	case "openai", "":
		return openai.NewOpenAIThread(config)
	default:
		return nil, errors.Errorf("unsupported LLM provider: %s", config.Provider)
	}
}
