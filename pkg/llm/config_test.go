package llm

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmtypes "github.com/abonvalle/hf-agent-course/pkg/types/llm"
)

func TestGetConfigFromViperDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	config, err := GetConfigFromViper()
	require.NoError(t, err)

	assert.Equal(t, "openai", config.Provider)
	assert.Equal(t, "o3-2025-04-16", config.Model)
	assert.Equal(t, 8192, config.MaxTokens)
	assert.Equal(t, 10, config.MaxTurns)
	assert.Equal(t, llmtypes.DefaultRetryConfig, config.Retry)
}

func TestGetConfigFromViperOverrides(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("provider", "anthropic")
	viper.Set("model", "claude-sonnet-4-0")
	viper.Set("weak_model", "claude-3-5-haiku-latest")
	viper.Set("max_tokens", 4096)
	viper.Set("max_turns", 5)
	viper.Set("reasoning_effort", "high")
	viper.Set("retry.attempts", 5)
	viper.Set("retry.initial_delay", 500)
	viper.Set("retry.max_delay", 5000)
	viper.Set("retry.backoff_type", "fixed")

	config, err := GetConfigFromViper()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", config.Provider)
	assert.Equal(t, "claude-sonnet-4-0", config.Model)
	assert.Equal(t, "claude-3-5-haiku-latest", config.WeakModel)
	assert.Equal(t, 4096, config.MaxTokens)
	assert.Equal(t, 5, config.MaxTurns)
	assert.Equal(t, "high", config.ReasoningEffort)
	assert.Equal(t, 5, config.Retry.Attempts)
	assert.Equal(t, 500, config.Retry.InitialDelay)
	assert.Equal(t, 5000, config.Retry.MaxDelay)
	assert.Equal(t, "fixed", config.Retry.BackoffType)
}

func TestNewThreadUnsupportedProvider(t *testing.T) {
	_, err := NewThread(llmtypes.Config{Provider: "gemini"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestNewThreadOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	thread, err := NewThread(llmtypes.Config{Provider: "openai"})
	require.NoError(t, err)
	assert.Equal(t, "openai", thread.Provider())
}

func TestNewThreadAnthropic(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	thread, err := NewThread(llmtypes.Config{Provider: "anthropic"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", thread.Provider())
}
