// Package anthropic implements the conversation thread against Anthropic's
// Claude messages API.
package anthropic

import (
	"context"
	"os"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/abonvalle/hf-agent-course/pkg/logger"
	"github.com/abonvalle/hf-agent-course/pkg/sysprompt"
	"github.com/abonvalle/hf-agent-course/pkg/telemetry"
	"github.com/abonvalle/hf-agent-course/pkg/tools"
	llmtypes "github.com/abonvalle/hf-agent-course/pkg/types/llm"
	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

const defaultModel = string(anthropic.ModelClaudeSonnet4_0)

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 600
	}

	// Transport-level failures without an API error are worth retrying.
	return true
}

// AnthropicThread implements the Thread interface using Anthropic's Claude API
type AnthropicThread struct {
	client   anthropic.Client
	config   llmtypes.Config
	state    tooltypes.State
	messages []anthropic.MessageParam
	usage    *llmtypes.Usage
	mu       sync.Mutex
}

// NewAnthropicThread creates a new thread with Anthropic's Claude API
func NewAnthropicThread(config llmtypes.Config) (*AnthropicThread, error) {
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 8192
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable is required")
	}

	return &AnthropicThread{
		client: anthropic.NewClient(),
		config: config,
		usage:  &llmtypes.Usage{},
	}, nil
}

// Provider returns the provider name for this thread
func (t *AnthropicThread) Provider() string {
	return "anthropic"
}

// SetState sets the state for the thread
func (t *AnthropicThread) SetState(s tooltypes.State) {
	t.state = s
}

// GetState returns the current state of the thread
func (t *AnthropicThread) GetState() tooltypes.State {
	return t.state
}

// AddUserMessage adds a user message to the thread
func (t *AnthropicThread) AddUserMessage(message string) {
	t.messages = append(t.messages, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))
}

// SendMessage sends a message to the LLM and runs the tool-use loop until
// the model produces a final answer or the turn limit is reached
func (t *AnthropicThread) SendMessage(
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

	systemPrompt := sysprompt.SystemPrompt(ctx, t.toolNames())

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

			messageParams := anthropic.MessageNewParams{
				Model:     anthropic.Model(model),
				MaxTokens: int64(t.config.MaxTokens),
				System: []anthropic.TextBlockParam{
					{Text: systemPrompt},
				},
				Messages: t.messages,
			}
			if !opt.NoToolUse {
				messageParams.Tools = tools.ToAnthropicTools(t.tools())
			}

			telemetry.AddEvent(ctx, "api_call_start",
				attribute.String("model", model),
			)

			response, err := t.createMessageWithRetry(ctx, messageParams)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.G(ctx).Info("request to Anthropic cancelled, stopping interaction")
					break OUTER
				}
				return "", errors.Wrap(err, "error sending message to Anthropic")
			}

			t.messages = append(t.messages, response.ToParam())
			t.updateUsage(response.Usage)

			telemetry.AddEvent(ctx, "api_call_complete",
				attribute.Int("input_tokens", int(response.Usage.InputTokens)),
				attribute.Int("output_tokens", int(response.Usage.OutputTokens)),
			)

			turnCount++

			toolUseCount := 0
			for _, block := range response.Content {
				switch variant := block.AsAny().(type) {
				case anthropic.TextBlock:
					handler.HandleText(variant.Text)
					finalOutput = variant.Text
				case anthropic.ToolUseBlock:
					toolUseCount++
					input := string(variant.JSON.Input.Raw())
					handler.HandleToolUse(block.Name, input)

					output := tools.RunTool(ctx, t.state, block.Name, input)
					handler.HandleToolResult(block.Name, output.AssistantFacing())

					t.messages = append(t.messages, anthropic.NewUserMessage(
						anthropic.NewToolResultBlock(block.ID, output.AssistantFacing(), output.IsError()),
					))
				}
			}

			if toolUseCount == 0 {
				break OUTER
			}
		}
	}

	handler.HandleDone()
	return finalOutput, nil
}

func (t *AnthropicThread) createMessageWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var response *anthropic.Message

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
			response, apiErr = t.client.Messages.New(ctx, params)
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
				Warn("retrying Anthropic API call")
		}),
	)

	return response, err
}

func (t *AnthropicThread) updateUsage(usage anthropic.Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.Add(llmtypes.Usage{
		InputTokens:  int(usage.InputTokens),
		OutputTokens: int(usage.OutputTokens),
	})
}

// GetUsage returns the current token usage for the thread
func (t *AnthropicThread) GetUsage() llmtypes.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.usage
}

// GetMessages returns the messages from the thread
func (t *AnthropicThread) GetMessages() ([]llmtypes.Message, error) {
	messages := make([]llmtypes.Message, 0, len(t.messages))
	for _, msg := range t.messages {
		var text string
		for _, block := range msg.Content {
			if block.OfText != nil {
				text += block.OfText.Text
			}
		}
		messages = append(messages, llmtypes.Message{
			Role:    string(msg.Role),
			Content: text,
		})
	}
	return messages, nil
}

func (t *AnthropicThread) tools() []tooltypes.Tool {
	if t.state != nil {
		return t.state.Tools()
	}
	return tools.GetMainTools(nil)
}

func (t *AnthropicThread) toolNames() []string {
	available := t.tools()
	names := make([]string, 0, len(available))
	for _, tool := range available {
		names = append(names, tool.Name())
	}
	return names
}
