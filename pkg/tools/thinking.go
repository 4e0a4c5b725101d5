package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

// ThinkingToolResult represents the result of a thinking tool execution
type ThinkingToolResult struct {
	thought string
	err     string
}

// GetResult returns a fixed acknowledgement, thinking is for the model's internal use
func (r *ThinkingToolResult) GetResult() string {
	return "Your thought have been recorded."
}

// GetError returns the error message
func (r *ThinkingToolResult) GetError() string {
	return r.err
}

// IsError returns true if the result contains an error
func (r *ThinkingToolResult) IsError() bool {
	return r.err != ""
}

// AssistantFacing returns the string representation for the AI assistant
func (r *ThinkingToolResult) AssistantFacing() string {
	return tooltypes.StringifyToolResult("Your thought have been recorded.", r.err)
}

// StructuredData returns structured metadata about the thinking operation
func (r *ThinkingToolResult) StructuredData() tooltypes.StructuredToolResult {
	result := tooltypes.StructuredToolResult{
		ToolName:  "thinking",
		Success:   !r.IsError(),
		Timestamp: time.Now(),
	}

	if r.IsError() {
		result.Error = r.GetError()
		return result
	}

	result.Metadata = &tooltypes.ThinkingMetadata{
		Thought: r.thought,
	}
	return result
}

// ThinkingTool provides functionality for the model to organize its thoughts
type ThinkingTool struct{}

// ThinkingInput defines the input parameters for the thinking tool
type ThinkingInput struct {
	Thought string `json:"thought" jsonschema:"description=A thought to think about"`
}

// Name returns the name of the tool
func (t *ThinkingTool) Name() string {
	return "thinking"
}

// TracingKVs returns tracing key-value pairs for observability
func (t *ThinkingTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input := &ThinkingInput{}
	err := json.Unmarshal([]byte(parameters), input)
	if err != nil {
		return nil, err
	}

	return []attribute.KeyValue{
		attribute.String("thought", input.Thought),
	}, nil
}

// ValidateInput validates the input parameters for the tool
func (t *ThinkingTool) ValidateInput(_ tooltypes.State, parameters string) error {
	var input ThinkingInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if input.Thought == "" {
		return errors.New("thought is required")
	}

	return nil
}

// GenerateSchema generates the JSON schema for the tool's input parameters
func (t *ThinkingTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[ThinkingInput]()
}

// Description returns the description of the thinking tool
func (t *ThinkingTool) Description() string {
	return `Use the tool to think about something.

It will not obtain new information or change anything, but just append the thought to the log. Use it when complex reasoning or some cache memory is needed.

# Common Use Cases
- Before answering, use this tool to break a multi-step question into smaller lookups.
- After a tool call, use this tool to check whether the result actually answers the question.
- When arithmetic and lookups interleave, use this tool to keep intermediate values straight.
`
}

// Execute records the thought and returns an acknowledgement
func (t *ThinkingTool) Execute(_ context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	input := &ThinkingInput{}
	err := json.Unmarshal([]byte(parameters), input)
	if err != nil {
		return &ThinkingToolResult{
			err: err.Error(),
		}
	}

	return &ThinkingToolResult{
		thought: input.Thought,
	}
}
