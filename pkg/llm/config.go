package llm

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	llmtypes "github.com/abonvalle/hf-agent-course/pkg/types/llm"
)

const (
	// DefaultProvider is used when no provider is configured
	DefaultProvider = "openai"
	// DefaultModel is the default reasoning model driving the agent
	DefaultModel = "o3-2025-04-16"
	// DefaultMaxTokens is the completion budget for non-reasoning models
	DefaultMaxTokens = 8192
	// DefaultMaxTurns caps the tool-use loop for a single question
	DefaultMaxTurns = 10
)

// GetConfigFromViper returns the LLM configuration from viper settings
func GetConfigFromViper() (llmtypes.Config, error) {
	var config llmtypes.Config

	if err := viper.Unmarshal(&config); err != nil {
		return config, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if config.Provider == "" {
		config.Provider = DefaultProvider
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.MaxTurns == 0 {
		config.MaxTurns = DefaultMaxTurns
	}

	// Apply retry defaults if not set
	if config.Retry.Attempts == 0 {
		config.Retry = llmtypes.DefaultRetryConfig
	}

	return config, nil
}
