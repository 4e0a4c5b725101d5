// Package tools defines the core tool contracts shared between the tool
// implementations, the LLM threads and the evaluation runner.
package tools

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// Tool is the interface implemented by every tool exposed to the model.
type Tool interface {
	GenerateSchema() *jsonschema.Schema
	Name() string
	Description() string
	ValidateInput(state State, parameters string) error
	Execute(ctx context.Context, state State, parameters string) ToolResult
	TracingKVs(parameters string) ([]attribute.KeyValue, error)
}

// ToolResult is the outcome of a tool execution.
type ToolResult interface {
	GetResult() string
	GetError() string
	IsError() bool
	AssistantFacing() string
	StructuredData() StructuredToolResult
}

// BaseToolResult is a plain result used for validation failures and other
// cases where no tool-specific metadata exists.
type BaseToolResult struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// GetResult returns the result content
func (r BaseToolResult) GetResult() string {
	return r.Result
}

// GetError returns the error message
func (r BaseToolResult) GetError() string {
	return r.Error
}

// IsError returns true if the result contains an error
func (r BaseToolResult) IsError() bool {
	return r.Error != ""
}

// AssistantFacing returns the string representation for the AI assistant
func (r BaseToolResult) AssistantFacing() string {
	return StringifyToolResult(r.Result, r.Error)
}

// StructuredData returns structured metadata about the result
func (r BaseToolResult) StructuredData() StructuredToolResult {
	return StructuredToolResult{
		Success: !r.IsError(),
		Error:   r.Error,
	}
}

// StringifyToolResult renders a result and error into the XML-ish envelope
// the model receives as tool feedback.
func StringifyToolResult(result, errStr string) string {
	out := ""
	if errStr != "" {
		out = fmt.Sprintf(`<error>
%s
</error>
`, errStr)
	}
	if result != "" {
		out += fmt.Sprintf(`<result>
%s
</result>
`, result)
	}
	return out
}

// State carries per-task context shared across tool invocations.
type State interface {
	// Tools returns the tools available for the current task
	Tools() []Tool
	// TaskFile returns the local path of the task attachment, if any
	TaskFile() string
	// SetTaskFile records the local path of the task attachment
	SetTaskFile(path string)
	// WorkDir returns the scratch directory for the current task
	WorkDir() string
}
