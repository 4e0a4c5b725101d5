// Package tools provides the tool execution framework for the agent.
// It defines the available tools, manages tool registration, and handles
// tool execution with proper validation, tracing, and error handling.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abonvalle/hf-agent-course/pkg/logger"
	"github.com/abonvalle/hf-agent-course/pkg/telemetry"
	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T

	return reflector.Reflect(v)
}

// defaultSpreadsheet is shared so file_inspect delegation hits the same cache
var defaultSpreadsheet = NewSpreadsheetTool()

// toolRegistry holds all available tools mapped by their names
var toolRegistry = map[string]tooltypes.Tool{
	"calculator":         &CalculatorTool{},
	"web_search":         &WebSearchTool{},
	"wikipedia_search":   &WikipediaSearchTool{},
	"arxiv_search":       &ArxivSearchTool{},
	"youtube_transcript": &YouTubeTranscriptTool{},
	"file_inspect":       &FileInspectTool{},
	"spreadsheet":        defaultSpreadsheet,
	"web_fetch":          &WebFetchTool{},
	"thinking":           &ThinkingTool{},
}

// defaultMainTools is the tool set handed to the agent for each question
var defaultMainTools = []string{
	"calculator",
	"web_search",
	"wikipedia_search",
	"arxiv_search",
	"youtube_transcript",
	"file_inspect",
	"spreadsheet",
	"web_fetch",
	"thinking",
}

// ValidateTools returns an error when any of the names is not registered
func ValidateTools(toolNames []string) error {
	for _, toolName := range toolNames {
		if _, exists := toolRegistry[toolName]; !exists {
			return errors.Errorf("unknown tool: %s", toolName)
		}
	}
	return nil
}

// GetToolsFromNames resolves registered tools in the order provided
func GetToolsFromNames(toolNames []string) []tooltypes.Tool {
	var tools []tooltypes.Tool
	seen := make(map[string]bool)
	for _, toolName := range toolNames {
		if seen[toolName] {
			continue
		}
		seen[toolName] = true
		if tool, exists := toolRegistry[toolName]; exists {
			tools = append(tools, tool)
		}
	}
	return tools
}

// GetMainTools returns the tools for a run, falling back to the default
// set when the allow-list is empty or contains unknown names
func GetMainTools(allowedTools []string) []tooltypes.Tool {
	if len(allowedTools) == 0 {
		allowedTools = defaultMainTools
	}

	if err := ValidateTools(allowedTools); err != nil {
		allowedTools = defaultMainTools
	}

	return GetToolsFromNames(allowedTools)
}

// ParseAllowedToolsString splits a comma separated tool allow-list
func ParseAllowedToolsString(allowedToolsStr string) []string {
	if allowedToolsStr == "" {
		return []string{}
	}

	var tools []string
	for _, tool := range strings.Split(allowedToolsStr, ",") {
		tool = strings.TrimSpace(tool)
		if tool != "" {
			tools = append(tools, tool)
		}
	}
	return tools
}

// ToAnthropicTools converts internal tool format to Anthropic's format
func ToAnthropicTools(tools []tooltypes.Tool) []anthropic.ToolUnionParam {
	anthropicTools := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		anthropicTools[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name(),
				Description: anthropic.String(tool.Description()),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: tool.GenerateSchema().Properties,
				},
			},
		}
	}

	return anthropicTools
}

var (
	tracer = telemetry.Tracer("hfagent.tools")
)

// RunTool resolves, validates and executes a tool call by name
func RunTool(ctx context.Context, state tooltypes.State, toolName string, parameters string) tooltypes.ToolResult {
	tool, err := findTool(toolName, state)
	if err != nil {
		return tooltypes.BaseToolResult{
			Error: errors.Wrap(err, "failed to find tool").Error(),
		}
	}

	kvs, err := tool.TracingKVs(parameters)
	if err != nil {
		logger.G(ctx).WithError(err).Error("failed to get tracing kvs")
	}

	ctx, span := tracer.Start(
		ctx,
		fmt.Sprintf("tools.run_tool.%s", toolName),
		trace.WithAttributes(kvs...),
	)
	defer span.End()

	err = tool.ValidateInput(state, parameters)
	if err != nil {
		return tooltypes.BaseToolResult{
			Error: err.Error(),
		}
	}
	result := tool.Execute(ctx, state, parameters)

	if result.IsError() {
		span.SetStatus(codes.Error, result.GetError())
		span.RecordError(errors.New(result.GetError()))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return result
}

func findTool(name string, state tooltypes.State) (tooltypes.Tool, error) {
	for _, tool := range state.Tools() {
		if tool.Name() == name {
			return tool, nil
		}
	}
	return nil, errors.Errorf("tool %s not found", name)
}
