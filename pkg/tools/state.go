package tools

import (
	"context"
	"os"
	"sync"

	"github.com/abonvalle/hf-agent-course/pkg/logger"
	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

var _ tooltypes.State = &BasicState{}

// BasicState implements the State interface for a single task
type BasicState struct {
	mu       sync.RWMutex
	tools    []tooltypes.Tool
	mcpTools []tooltypes.Tool
	taskFile string
	workDir  string
}

// BasicStateOption is a function that configures a BasicState
type BasicStateOption func(ctx context.Context, s *BasicState) error

// NewBasicState creates a new BasicState with the given options
func NewBasicState(ctx context.Context, opts ...BasicStateOption) *BasicState {
	state := &BasicState{}

	for _, opt := range opts {
		if err := opt(ctx, state); err != nil {
			logger.G(ctx).WithError(err).Fatal("Failed to apply state option")
		}
	}

	if len(state.tools) == 0 {
		state.tools = GetMainTools(nil)
	}
	if state.workDir == "" {
		state.workDir = os.TempDir()
	}

	return state
}

// WithTools sets the tool set available to the task
func WithTools(tools []tooltypes.Tool) BasicStateOption {
	return func(_ context.Context, s *BasicState) error {
		s.tools = tools
		return nil
	}
}

// WithMCPTools discovers and attaches tools from the configured MCP servers
func WithMCPTools(manager *MCPManager) BasicStateOption {
	return func(ctx context.Context, s *BasicState) error {
		if manager == nil {
			return nil
		}
		mcpTools, err := manager.ListTools(ctx)
		if err != nil {
			return err
		}
		s.mcpTools = mcpTools
		return nil
	}
}

// WithWorkDir sets the scratch directory for attachment downloads
func WithWorkDir(dir string) BasicStateOption {
	return func(_ context.Context, s *BasicState) error {
		s.workDir = dir
		return nil
	}
}

// Tools returns the tools available for the current task
func (s *BasicState) Tools() []tooltypes.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(append([]tooltypes.Tool{}, s.tools...), s.mcpTools...)
}

// TaskFile returns the local path of the task attachment, if any
func (s *BasicState) TaskFile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taskFile
}

// SetTaskFile records the local path of the task attachment
func (s *BasicState) SetTaskFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskFile = path
}

// WorkDir returns the scratch directory for the current task
func (s *BasicState) WorkDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workDir
}
