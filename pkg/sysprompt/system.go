// Package sysprompt renders the system prompt that steers the agent
// toward the FINAL ANSWER output contract.
package sysprompt

import (
	"context"
	"embed"
	"os"
	"strings"
	"time"

	"github.com/abonvalle/hf-agent-course/pkg/logger"
)

//go:embed templates/*
var TemplateFS embed.FS

// SystemTemplate is the name of the default system prompt template
const SystemTemplate = "system.tmpl"

// OverrideFile is an optional plain-text prompt that replaces the
// built-in template when present in the working directory.
const OverrideFile = "system_prompt.txt"

// PromptContext carries the values the system template interpolates
type PromptContext struct {
	ToolNames   []string
	CurrentDate string
}

// SystemPrompt returns the system prompt for a run. A non-empty
// system_prompt.txt in the working directory wins over the template.
func SystemPrompt(ctx context.Context, toolNames []string) string {
	if content, err := os.ReadFile(OverrideFile); err == nil {
		if prompt := strings.TrimSpace(string(content)); prompt != "" {
			return prompt
		}
	}

	promptCtx := &PromptContext{
		ToolNames:   toolNames,
		CurrentDate: time.Now().Format("January 2, 2006"),
	}

	renderer := NewRenderer(TemplateFS)
	prompt, err := renderer.RenderPrompt(SystemTemplate, promptCtx)
	if err != nil {
		logger.G(ctx).WithError(err).Fatal("Error rendering system prompt")
	}

	return prompt
}
