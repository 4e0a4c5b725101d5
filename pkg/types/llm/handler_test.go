package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringCollectorHandlerCollectsText(t *testing.T) {
	handler := &StringCollectorHandler{Silent: true}

	handler.HandleText("first")
	handler.HandleToolUse("calculator", `{"operation":"add"}`)
	handler.HandleToolResult("calculator", "3")
	handler.HandleText("second")
	handler.HandleDone()

	assert.Equal(t, "first\nsecond\n", handler.CollectedText())
}

func TestUsageAccumulation(t *testing.T) {
	usage := Usage{InputTokens: 10, OutputTokens: 5}
	usage.Add(Usage{InputTokens: 7, OutputTokens: 3})

	assert.Equal(t, 17, usage.InputTokens)
	assert.Equal(t, 8, usage.OutputTokens)
	assert.Equal(t, 25, usage.TotalTokens())
}

func TestRetryConfigDurations(t *testing.T) {
	cfg := RetryConfig{Attempts: 2, InitialDelay: 500, MaxDelay: 2000, BackoffType: "fixed"}

	assert.Equal(t, int64(500), cfg.InitialDelayDuration().Milliseconds())
	assert.Equal(t, int64(2000), cfg.MaxDelayDuration().Milliseconds())
}
