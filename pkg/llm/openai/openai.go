// Package openai implements the conversation thread against the OpenAI
// chat completions API, including tool execution and retry handling.
package openai

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"github.com/abonvalle/hf-agent-course/pkg/logger"
	"github.com/abonvalle/hf-agent-course/pkg/sysprompt"
	"github.com/abonvalle/hf-agent-course/pkg/telemetry"
	"github.com/abonvalle/hf-agent-course/pkg/tools"
	llmtypes "github.com/abonvalle/hf-agent-course/pkg/types/llm"
	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

// reasoningModelPrefixes lists the OpenAI model families that take a
// reasoning effort instead of a completion token budget.
var reasoningModelPrefixes = []string{"o1", "o3", "o4"}

// IsReasoningModel checks if the given model supports reasoning capabilities
func IsReasoningModel(model string) bool {
	for _, prefix := range reasoningModelPrefixes {
		if model == prefix || strings.HasPrefix(model, prefix+"-") {
			return true
		}
	}
	return false
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		statusCode := apiErr.HTTPStatusCode
		return statusCode >= 400 && statusCode < 600
	}

	var httpErr *openai.RequestError
	if errors.As(err, &httpErr) {
		return true
	}

	return false
}

// Thread implements the Thread interface using OpenAI's API
type Thread struct {
	client          *openai.Client
	config          llmtypes.Config
	state           tooltypes.State
	messages        []openai.ChatCompletionMessage
	usage           *llmtypes.Usage
	reasoningEffort string
	mu              sync.Mutex
}

// NewOpenAIThread creates a new thread backed by OpenAI's API
func NewOpenAIThread(config llmtypes.Config) (*Thread, error) {
	if config.Model == "" {
		config.Model = "o3-2025-04-16"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 8192
	}

	reasoningEffort := config.ReasoningEffort
	if reasoningEffort == "" {
		reasoningEffort = "medium"
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_API_BASE"); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &Thread{
		client:          openai.NewClientWithConfig(clientConfig),
		config:          config,
		reasoningEffort: reasoningEffort,
		usage:           &llmtypes.Usage{},
	}, nil
}

// Provider returns the provider name for this thread
func (t *Thread) Provider() string {
	return "openai"
}

// SetState sets the state for the thread
func (t *Thread) SetState(s tooltypes.State) {
	t.state = s
}

// GetState returns the current state of the thread
func (t *Thread) GetState() tooltypes.State {
	return t.state
}

// AddUserMessage adds a user message to the thread
func (t *Thread) AddUserMessage(message string) {
	t.messages = append(t.messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})
}

// SendMessage sends a message to the LLM and runs the tool-use loop until
// the model produces a final answer or the turn limit is reached
func (t *Thread) SendMessage(
	ctx context.Context,
	message string,
	handler llmtypes.MessageHandler,
	opt llmtypes.MessageOpt,
) (finalOutput string, err error) {
	tracer := telemetry.Tracer("hfagent.llm")
	ctx, span := tracer.Start(ctx, "llm.send_message")
	defer span.End()

	t.AddUserMessage(message)

	model := t.config.Model
	if opt.UseWeakModel && t.config.WeakModel != "" {
		model = t.config.WeakModel
	}
	maxTokens := t.config.MaxTokens

	// The system message occupies slot zero and is refreshed on every send
	// so tool availability stays in sync with the state.
	systemPrompt := sysprompt.SystemPrompt(ctx, t.toolNames())
	if len(t.messages) > 0 && t.messages[0].Role == openai.ChatMessageRoleSystem {
		t.messages[0].Content = systemPrompt
	} else {
		systemMessage := openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		}
		t.messages = append([]openai.ChatCompletionMessage{systemMessage}, t.messages...)
	}

	turnCount := 0
	maxTurns := t.config.MaxTurns

OUTER:
	for {
		select {
		case <-ctx.Done():
			logger.G(ctx).Info("context cancelled, stopping interaction")
			break OUTER
		default:
			if maxTurns > 0 && turnCount >= maxTurns {
				logger.G(ctx).
					WithField("turn_count", turnCount).
					WithField("max_turns", maxTurns).
					Warn("reached maximum turn limit, stopping interaction")
				break OUTER
			}

			exchangeOutput, toolsUsed, err := t.processMessageExchange(ctx, handler, model, maxTokens, opt)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.G(ctx).Info("request to OpenAI cancelled, stopping interaction")
					break OUTER
				}
				return "", err
			}

			turnCount++
			finalOutput = exchangeOutput

			if !toolsUsed {
				break OUTER
			}
		}
	}

	handler.HandleDone()
	return finalOutput, nil
}

// processMessageExchange handles a single message exchange with the LLM,
// including the API call, response processing and tool execution
func (t *Thread) processMessageExchange(
	ctx context.Context,
	handler llmtypes.MessageHandler,
	model string,
	maxTokens int,
	opt llmtypes.MessageOpt,
) (string, bool, error) {
	var finalOutput string

	requestParams := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  t.messages,
		MaxTokens: maxTokens,
	}

	if IsReasoningModel(model) {
		if t.reasoningEffort != "none" {
			requestParams.ReasoningEffort = t.reasoningEffort
		}
		requestParams.MaxTokens = 0
	}

	if !opt.NoToolUse {
		availableTools := t.tools()
		if len(availableTools) > 0 {
			requestParams.Tools = tools.ToOpenAITools(availableTools)
			requestParams.ToolChoice = "auto"
		}
	}

	telemetry.AddEvent(ctx, "api_call_start",
		attribute.String("model", model),
	)

	response, err := t.createChatCompletionWithRetry(ctx, requestParams)
	if err != nil {
		return "", false, errors.Wrap(err, "error sending message to OpenAI")
	}

	telemetry.AddEvent(ctx, "api_call_complete",
		attribute.Int("prompt_tokens", response.Usage.PromptTokens),
		attribute.Int("completion_tokens", response.Usage.CompletionTokens),
	)

	t.updateUsage(response.Usage)

	if len(response.Choices) == 0 {
		return "", false, errors.New("no response choices returned from OpenAI")
	}

	assistantMessage := response.Choices[0].Message
	t.messages = append(t.messages, assistantMessage)

	if assistantMessage.Content != "" {
		handler.HandleText(assistantMessage.Content)
		finalOutput = assistantMessage.Content
	}

	toolCalls := assistantMessage.ToolCalls
	if len(toolCalls) == 0 {
		return finalOutput, false, nil
	}

	for _, toolCall := range toolCalls {
		handler.HandleToolUse(toolCall.Function.Name, toolCall.Function.Arguments)

		telemetry.AddEvent(ctx, "tool_execution_start",
			attribute.String("tool_name", toolCall.Function.Name),
		)

		output := tools.RunTool(ctx, t.state, toolCall.Function.Name, toolCall.Function.Arguments)
		handler.HandleToolResult(toolCall.Function.Name, output.AssistantFacing())

		telemetry.AddEvent(ctx, "tool_execution_complete",
			attribute.String("tool_name", toolCall.Function.Name),
		)

		t.messages = append(t.messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    output.AssistantFacing(),
			ToolCallID: toolCall.ID,
		})
	}

	return finalOutput, true, nil
}

func (t *Thread) createChatCompletionWithRetry(ctx context.Context, requestParams openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var response openai.ChatCompletionResponse

	retryConfig := t.config.Retry

	var delayType retry.DelayTypeFunc
	switch retryConfig.BackoffType {
	case "fixed":
		delayType = retry.FixedDelay
	case "exponential":
		fallthrough
	default:
		delayType = retry.BackOffDelay
	}

	err := retry.Do(
		func() error {
			var apiErr error
			response, apiErr = t.client.CreateChatCompletion(ctx, requestParams)
			return apiErr
		},
		retry.RetryIf(isRetryableError),
		retry.Attempts(uint(retryConfig.Attempts)),
		retry.Delay(retryConfig.InitialDelayDuration()),
		retry.DelayType(delayType),
		retry.MaxDelay(retryConfig.MaxDelayDuration()),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).
				WithError(err).
				WithField("attempt", n+1).
				WithField("max_attempts", retryConfig.Attempts).
				Warn("retrying OpenAI API call")
		}),
	)

	return response, err
}

func (t *Thread) updateUsage(usage openai.Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.Add(llmtypes.Usage{
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
	})
}

// GetUsage returns the current token usage for the thread
func (t *Thread) GetUsage() llmtypes.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.usage
}

// GetMessages returns the messages from the thread
func (t *Thread) GetMessages() ([]llmtypes.Message, error) {
	messages := make([]llmtypes.Message, 0, len(t.messages))
	for _, msg := range t.messages {
		messages = append(messages, llmtypes.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return messages, nil
}

func (t *Thread) tools() []tooltypes.Tool {
	if t.state != nil {
		return t.state.Tools()
	}
	return tools.GetMainTools(nil)
}

func (t *Thread) toolNames() []string {
	available := t.tools()
	names := make([]string, 0, len(available))
	for _, tool := range available {
		names = append(names, tool.Name())
	}
	return names
}
