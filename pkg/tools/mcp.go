package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"

	"github.com/abonvalle/hf-agent-course/pkg/logger"
	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
	"github.com/abonvalle/hf-agent-course/pkg/version"
)

var (
	_ tooltypes.Tool = &MCPTool{}
)

type MCPServerType string

const (
	MCPServerTypeStdio MCPServerType = "stdio"
	MCPServerTypeSSE   MCPServerType = "sse"
)

type MCPServerConfig struct {
	ServerType    MCPServerType     `json:"server_type" mapstructure:"server_type"`         // stdio or sse
	Command       string            `json:"command" mapstructure:"command"`                 // stdio: command to start the server
	Args          []string          `json:"args" mapstructure:"args"`                       // stdio: arguments to pass to the server
	Envs          map[string]string `json:"envs" mapstructure:"envs"`                       // stdio: environment variables to set
	BaseURL       string            `json:"base_url" mapstructure:"base_url"`               // sse: base URL of the server
	Headers       map[string]string `json:"headers" mapstructure:"headers"`                 // sse: headers to send to the server
	ToolWhiteList []string          `json:"tool_white_list" mapstructure:"tool_white_list"` // tools to expose; empty means all
}

type MCPServersConfig struct {
	Servers map[string]MCPServerConfig `json:"servers" mapstructure:"servers"`
}

// CreateMCPManagerFromViper builds an initialized MCP manager from the
// mcp.servers block of the config file. No configured servers yields a
// manager with no tools.
func CreateMCPManagerFromViper(ctx context.Context) (*MCPManager, error) {
	config, err := LoadMCPConfigFromViper()
	if err != nil {
		return nil, err
	}
	manager, err := NewMCPManager(config)
	if err != nil {
		return nil, err
	}
	if err := manager.Initialize(ctx); err != nil {
		return nil, err
	}
	return manager, nil
}

// LoadMCPConfigFromViper decodes the mcp.servers block of the config file
func LoadMCPConfigFromViper() (MCPServersConfig, error) {
	var config MCPServersConfig

	raw := viper.Get("mcp")
	if raw == nil {
		return config, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return config, errors.Wrap(err, "failed to create mcp config decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return config, errors.Wrap(err, "failed to decode mcp config")
	}

	return config, nil
}

func NewMCPClient(config MCPServerConfig) (*client.Client, error) {
	if config.ServerType == "" {
		if config.BaseURL != "" {
			config.ServerType = MCPServerTypeSSE
		} else if config.Command != "" {
			config.ServerType = MCPServerTypeStdio
		} else {
			return nil, errors.New("server_type is required")
		}
	}

	switch config.ServerType {
	case MCPServerTypeStdio:
		if config.Command == "" {
			return nil, errors.New("command is required for stdio server")
		}
		envArgs := []string{}
		for k, v := range config.Envs {
			envArgs = append(envArgs, fmt.Sprintf("%s=%s", k, v))
		}
		tp := transport.NewStdio(config.Command, envArgs, config.Args...)
		return client.NewClient(tp), nil
	case MCPServerTypeSSE:
		if config.BaseURL == "" {
			return nil, errors.New("base_url is required for sse server")
		}
		tp, err := transport.NewSSE(config.BaseURL, transport.WithHeaders(config.Headers))
		if err != nil {
			return nil, err
		}
		return client.NewClient(tp), nil
	default:
		return nil, errors.New("invalid server type")
	}
}

// MCPManager owns the clients for all configured MCP servers
type MCPManager struct {
	clients   map[string]*client.Client
	whiteList map[string][]string
}

func NewMCPManager(config MCPServersConfig) (*MCPManager, error) {
	manager := &MCPManager{
		clients:   make(map[string]*client.Client),
		whiteList: make(map[string][]string),
	}
	for name, serverConfig := range config.Servers {
		mcpClient, err := NewMCPClient(serverConfig)
		if err != nil {
			return nil, err
		}
		manager.clients[name] = mcpClient
		manager.whiteList[name] = serverConfig.ToolWhiteList
	}
	return manager, nil
}

func (m *MCPManager) Initialize(ctx context.Context) error {
	for name, mcpClient := range m.clients {
		logger.G(ctx).WithField("name", name).Info("initializing mcp client")
		initReq := mcp.InitializeRequest{}
		initReq.Params.ClientInfo = mcp.Implementation{
			Name:    "hfagent",
			Version: version.Version,
		}
		initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		err := mcpClient.Start(ctx)
		if err != nil {
			return err
		}
		_, err = mcpClient.Initialize(ctx, initReq)
		if err != nil {
			return err
		}
		logger.G(ctx).WithField("name", name).Info("initialized mcp client")
	}
	return nil
}

func (m *MCPManager) Close(ctx context.Context) error {
	for name, mcpClient := range m.clients {
		err := mcpClient.Close()
		if err != nil {
			logger.G(ctx).WithField("name", name).WithError(err).Error("failed to close mcp client")
		}
	}
	return nil
}

// ListTools returns the whitelisted tools of every configured server
func (m *MCPManager) ListTools(ctx context.Context) ([]tooltypes.Tool, error) {
	tools := []tooltypes.Tool{}
	for name, mcpClient := range m.clients {
		logger.G(ctx).WithField("name", name).Info("listing mcp tools")
		listToolResult, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			return nil, err
		}
		for _, tool := range listToolResult.Tools {
			if toolWhiteListed(tool, m.whiteList[name]) {
				tools = append(tools, NewMCPTool(mcpClient, name, tool))
			}
		}
	}
	return tools, nil
}

func toolWhiteListed(tool mcp.Tool, whiteList []string) bool {
	return len(whiteList) == 0 || slices.Contains(whiteList, tool.GetName())
}

// MCPTool adapts a remote MCP tool to the local Tool interface
type MCPTool struct {
	client             *client.Client
	serverName         string
	mcpToolInputSchema mcp.ToolInputSchema
	mcpToolName        string
	mcpToolDescription string
}

func NewMCPTool(mcpClient *client.Client, serverName string, tool mcp.Tool) *MCPTool {
	return &MCPTool{
		client:             mcpClient,
		serverName:         serverName,
		mcpToolInputSchema: tool.InputSchema,
		mcpToolName:        tool.GetName(),
		mcpToolDescription: tool.Description,
	}
}

func (t *MCPTool) Name() string {
	return fmt.Sprintf("mcp_%s", t.mcpToolName)
}

func (t *MCPTool) Description() string {
	return t.mcpToolDescription
}

func (t *MCPTool) GenerateSchema() *jsonschema.Schema {
	b, err := t.mcpToolInputSchema.MarshalJSON()
	if err != nil {
		return nil
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(b, &schema); err != nil {
		return nil
	}
	return &schema
}

func (t *MCPTool) TracingKVs(_ string) ([]attribute.KeyValue, error) {
	return []attribute.KeyValue{
		attribute.String("mcp_tool", t.mcpToolName),
		attribute.String("mcp_server", t.serverName),
	}, nil
}

func (t *MCPTool) ValidateInput(_ tooltypes.State, parameters string) error {
	var input map[string]any
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}
	return nil
}

func (t *MCPTool) Execute(ctx context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	var input map[string]any
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return &MCPToolResult{toolName: t.mcpToolName, serverName: t.serverName, err: err.Error()}
	}

	req := mcp.CallToolRequest{}
	req.Params.Arguments = input
	req.Params.Name = t.mcpToolName

	started := time.Now()
	result, err := t.client.CallTool(ctx, req)
	elapsed := time.Since(started)
	if err != nil {
		return &MCPToolResult{toolName: t.mcpToolName, serverName: t.serverName, err: err.Error()}
	}

	content := ""
	blocks := make([]tooltypes.MCPContent, 0, len(result.Content))
	for _, c := range result.Content {
		if v, ok := c.(mcp.TextContent); ok {
			content += v.Text
			blocks = append(blocks, tooltypes.MCPContent{Type: "text", Text: v.Text})
		} else {
			content += fmt.Sprintf("%v", c)
			blocks = append(blocks, tooltypes.MCPContent{Type: "unknown", Data: fmt.Sprintf("%v", c)})
		}
	}

	return &MCPToolResult{
		toolName:      t.mcpToolName,
		serverName:    t.serverName,
		parameters:    input,
		content:       blocks,
		result:        content,
		executionTime: elapsed,
	}
}

// MCPToolResult represents the result of an MCP tool invocation
type MCPToolResult struct {
	toolName      string
	serverName    string
	parameters    map[string]any
	content       []tooltypes.MCPContent
	result        string
	executionTime time.Duration
	err           string
}

// GetResult returns the concatenated content blocks
func (r *MCPToolResult) GetResult() string {
	return r.result
}

// GetError returns the error message
func (r *MCPToolResult) GetError() string {
	return r.err
}

// IsError returns true if the result contains an error
func (r *MCPToolResult) IsError() bool {
	return r.err != ""
}

// AssistantFacing returns the string representation for the AI assistant
func (r *MCPToolResult) AssistantFacing() string {
	result := ""
	if !r.IsError() {
		result = r.result
	}
	return tooltypes.StringifyToolResult(result, r.err)
}

// StructuredData returns structured metadata about the invocation
func (r *MCPToolResult) StructuredData() tooltypes.StructuredToolResult {
	result := tooltypes.StructuredToolResult{
		ToolName:  "mcp_tool",
		Success:   !r.IsError(),
		Timestamp: time.Now(),
	}

	if r.IsError() {
		result.Error = r.GetError()
		return result
	}

	result.Metadata = &tooltypes.MCPToolMetadata{
		MCPToolName:   r.toolName,
		ServerName:    r.serverName,
		Parameters:    r.parameters,
		Content:       r.content,
		ExecutionTime: r.executionTime,
	}
	return result
}
