package llm

import "time"

// Config holds the configuration for the LLM client
type Config struct {
	Provider        string      `mapstructure:"provider"`   // Provider is "openai" or "anthropic"
	Model           string      `mapstructure:"model"`      // Model is the main driver
	WeakModel       string      `mapstructure:"weak_model"` // WeakModel is the less capable but faster model to use
	MaxTokens       int         `mapstructure:"max_tokens"`
	ReasoningEffort string      `mapstructure:"reasoning_effort"` // ReasoningEffort is low, medium or high for reasoning models
	MaxTurns        int         `mapstructure:"max_turns"`        // MaxTurns caps the tool-use loop for a single question
	Retry           RetryConfig `mapstructure:"retry"`
}

// RetryConfig controls retry behaviour for LLM API calls
type RetryConfig struct {
	Attempts     int    `mapstructure:"attempts"`      // Attempts is the total number of tries including the first one
	InitialDelay int    `mapstructure:"initial_delay"` // InitialDelay in milliseconds
	MaxDelay     int    `mapstructure:"max_delay"`     // MaxDelay in milliseconds
	BackoffType  string `mapstructure:"backoff_type"`  // BackoffType is "fixed" or "exponential"
}

// DefaultRetryConfig is used when no retry configuration is provided
var DefaultRetryConfig = RetryConfig{
	Attempts:     3,
	InitialDelay: 1000,
	MaxDelay:     10000,
	BackoffType:  "exponential",
}

// InitialDelayDuration returns the initial delay as a time.Duration
func (r RetryConfig) InitialDelayDuration() time.Duration {
	return time.Duration(r.InitialDelay) * time.Millisecond
}

// MaxDelayDuration returns the max delay as a time.Duration
func (r RetryConfig) MaxDelayDuration() time.Duration {
	return time.Duration(r.MaxDelay) * time.Millisecond
}
