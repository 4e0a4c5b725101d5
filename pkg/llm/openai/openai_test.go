package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abonvalle/hf-agent-course/pkg/tools"
	llmtypes "github.com/abonvalle/hf-agent-course/pkg/types/llm"
)

func TestIsReasoningModel(t *testing.T) {
	tests := []struct {
		model    string
		expected bool
	}{
		{"o3", true},
		{"o3-2025-04-16", true},
		{"o3-mini", true},
		{"o1", true},
		{"o4-mini", true},
		{"gpt-4.1", false},
		{"gpt-4o", false},
		{"claude-sonnet-4-0", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsReasoningModel(tt.model))
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"server error", &openai.APIError{HTTPStatusCode: 500}, true},
		{"rate limited", &openai.APIError{HTTPStatusCode: 429}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, true},
		{"request error", &openai.RequestError{HTTPStatusCode: 502}, true},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"plain error", fmt.Errorf("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableError(tt.err))
		})
	}
}

func TestNewOpenAIThreadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewOpenAIThread(llmtypes.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestNewOpenAIThreadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	thread, err := NewOpenAIThread(llmtypes.Config{})
	require.NoError(t, err)

	assert.Equal(t, "o3-2025-04-16", thread.config.Model)
	assert.Equal(t, 8192, thread.config.MaxTokens)
	assert.Equal(t, "medium", thread.reasoningEffort)
	assert.Equal(t, "openai", thread.Provider())
}

func chatResponse(message map[string]any) string {
	body, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "o3-2025-04-16",
		"choices": []map[string]any{
			{"index": 0, "message": message, "finish_reason": "stop"},
		},
		"usage": map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 7,
			"total_tokens":      19,
		},
	})
	return string(body)
}

func newTestThread(t *testing.T, serverURL string, config llmtypes.Config) *Thread {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_BASE", serverURL)

	thread, err := NewOpenAIThread(config)
	require.NoError(t, err)
	thread.SetState(tools.NewBasicState(context.Background()))
	return thread
}

func TestSendMessageToolLoop(t *testing.T) {
	var requests []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		if len(requests) == 1 {
			fmt.Fprint(w, chatResponse(map[string]any{
				"role": "assistant",
				"tool_calls": []map[string]any{
					{
						"id":   "call_1",
						"type": "function",
						"function": map[string]any{
							"name":      "calculator",
							"arguments": `{"operation":"add","a":2,"b":3}`,
						},
					},
				},
			}))
			return
		}
		fmt.Fprint(w, chatResponse(map[string]any{
			"role":    "assistant",
			"content": "FINAL ANSWER: 5",
		}))
	}))
	defer server.Close()

	thread := newTestThread(t, server.URL, llmtypes.Config{
		Model:    "o3-2025-04-16",
		MaxTurns: 10,
		Retry:    llmtypes.DefaultRetryConfig,
	})

	handler := &llmtypes.StringCollectorHandler{Silent: true}
	output, err := thread.SendMessage(context.Background(), "What is 2 plus 3?", handler, llmtypes.MessageOpt{})
	require.NoError(t, err)

	assert.Equal(t, "FINAL ANSWER: 5", output)
	assert.Contains(t, handler.CollectedText(), "FINAL ANSWER: 5")
	require.Len(t, requests, 2)

	// Reasoning models send an effort instead of a completion budget.
	assert.Equal(t, "medium", requests[0]["reasoning_effort"])
	assert.Nil(t, requests[0]["max_tokens"])

	firstMessages := requests[0]["messages"].([]any)
	systemMessage := firstMessages[0].(map[string]any)
	assert.Equal(t, "system", systemMessage["role"])
	assert.Contains(t, systemMessage["content"], "FINAL ANSWER")

	// The second request carries the tool result back to the model.
	secondMessages := requests[1]["messages"].([]any)
	toolMessage := secondMessages[len(secondMessages)-1].(map[string]any)
	assert.Equal(t, "tool", toolMessage["role"])
	assert.Equal(t, "call_1", toolMessage["tool_call_id"])
	assert.Contains(t, toolMessage["content"], "5")

	usage := thread.GetUsage()
	assert.Equal(t, 24, usage.InputTokens)
	assert.Equal(t, 14, usage.OutputTokens)
}

func TestSendMessageMaxTurns(t *testing.T) {
	var requestCount atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatResponse(map[string]any{
			"role": "assistant",
			"tool_calls": []map[string]any{
				{
					"id":   "call_loop",
					"type": "function",
					"function": map[string]any{
						"name":      "calculator",
						"arguments": `{"operation":"add","a":1,"b":1}`,
					},
				},
			},
		}))
	}))
	defer server.Close()

	thread := newTestThread(t, server.URL, llmtypes.Config{
		Model:    "gpt-4.1",
		MaxTurns: 2,
		Retry:    llmtypes.DefaultRetryConfig,
	})

	handler := &llmtypes.StringCollectorHandler{Silent: true}
	_, err := thread.SendMessage(context.Background(), "loop forever", handler, llmtypes.MessageOpt{})
	require.NoError(t, err)

	assert.Equal(t, int64(2), requestCount.Load())
}

func TestSendMessageRetriesServerErrors(t *testing.T) {
	var requestCount atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestCount.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatResponse(map[string]any{
			"role":    "assistant",
			"content": "FINAL ANSWER: ok",
		}))
	}))
	defer server.Close()

	thread := newTestThread(t, server.URL, llmtypes.Config{
		Model:    "gpt-4.1",
		MaxTurns: 10,
		Retry: llmtypes.RetryConfig{
			Attempts:     3,
			InitialDelay: 1,
			MaxDelay:     5,
			BackoffType:  "fixed",
		},
	})

	handler := &llmtypes.StringCollectorHandler{Silent: true}
	output, err := thread.SendMessage(context.Background(), "hello", handler, llmtypes.MessageOpt{})
	require.NoError(t, err)

	assert.Equal(t, "FINAL ANSWER: ok", output)
	assert.Equal(t, int64(2), requestCount.Load())
}

func TestSendMessageCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected after cancellation")
	}))
	defer server.Close()

	thread := newTestThread(t, server.URL, llmtypes.Config{
		Model:    "gpt-4.1",
		MaxTurns: 10,
		Retry:    llmtypes.DefaultRetryConfig,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := &llmtypes.StringCollectorHandler{Silent: true}
	output, err := thread.SendMessage(ctx, "hello", handler, llmtypes.MessageOpt{})
	require.NoError(t, err)
	assert.Empty(t, output)
}

func TestGetMessages(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	thread, err := NewOpenAIThread(llmtypes.Config{})
	require.NoError(t, err)

	thread.AddUserMessage("first question")
	thread.AddUserMessage("second question")

	messages, err := thread.GetMessages()
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "first question", messages[0].Content)
	assert.Equal(t, "second question", messages[1].Content)
}
