package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMainTools(t *testing.T) {
	t.Run("default set", func(t *testing.T) {
		tools := GetMainTools(nil)
		require.Len(t, tools, len(defaultMainTools))

		names := make([]string, 0, len(tools))
		for _, tool := range tools {
			names = append(names, tool.Name())
		}
		assert.Equal(t, defaultMainTools, names)
	})

	t.Run("allow list", func(t *testing.T) {
		tools := GetMainTools([]string{"calculator", "thinking"})
		require.Len(t, tools, 2)
		assert.Equal(t, "calculator", tools[0].Name())
		assert.Equal(t, "thinking", tools[1].Name())
	})

	t.Run("unknown name falls back to defaults", func(t *testing.T) {
		tools := GetMainTools([]string{"nuke"})
		assert.Len(t, tools, len(defaultMainTools))
	})
}

func TestParseAllowedToolsString(t *testing.T) {
	assert.Empty(t, ParseAllowedToolsString(""))
	assert.Equal(t, []string{"calculator", "web_search"}, ParseAllowedToolsString("calculator, web_search"))
	assert.Equal(t, []string{"thinking"}, ParseAllowedToolsString(" thinking ,"))
}

func TestValidateTools(t *testing.T) {
	assert.NoError(t, ValidateTools([]string{"calculator", "spreadsheet"}))
	assert.Error(t, ValidateTools([]string{"calculator", "bogus"}))
}

func TestRunTool(t *testing.T) {
	ctx := context.TODO()
	state := NewBasicState(ctx, WithTools(GetMainTools([]string{"calculator"})))

	t.Run("executes a registered tool", func(t *testing.T) {
		result := RunTool(ctx, state, "calculator", `{"operation":"add","a":1,"b":2}`)
		require.False(t, result.IsError(), result.GetError())
		assert.Equal(t, "3", result.GetResult())
	})

	t.Run("unknown tool", func(t *testing.T) {
		result := RunTool(ctx, state, "bogus", `{}`)
		require.True(t, result.IsError())
		assert.Contains(t, result.GetError(), "tool bogus not found")
	})

	t.Run("validation failure", func(t *testing.T) {
		result := RunTool(ctx, state, "calculator", `{"operation":"divide","a":1,"b":0}`)
		require.True(t, result.IsError())
		assert.Contains(t, result.GetError(), "cannot divide by zero")
	})
}

func TestBasicState(t *testing.T) {
	ctx := context.TODO()

	t.Run("defaults", func(t *testing.T) {
		state := NewBasicState(ctx)
		assert.Len(t, state.Tools(), len(defaultMainTools))
		assert.NotEmpty(t, state.WorkDir())
		assert.Empty(t, state.TaskFile())
	})

	t.Run("task file round trip", func(t *testing.T) {
		state := NewBasicState(ctx, WithWorkDir("/tmp/scratch"))
		state.SetTaskFile("/tmp/scratch/task.csv")
		assert.Equal(t, "/tmp/scratch/task.csv", state.TaskFile())
		assert.Equal(t, "/tmp/scratch", state.WorkDir())
	})
}

func TestToOpenAITools(t *testing.T) {
	tools := ToOpenAITools(GetMainTools([]string{"calculator"}))
	require.Len(t, tools, 1)
	assert.Equal(t, "calculator", tools[0].Function.Name)
	assert.NotEmpty(t, tools[0].Function.Description)
	assert.NotNil(t, tools[0].Function.Parameters)
}

func TestToAnthropicTools(t *testing.T) {
	tools := ToAnthropicTools(GetMainTools([]string{"calculator", "thinking"}))
	require.Len(t, tools, 2)
	assert.Equal(t, "calculator", tools[0].OfTool.Name)
	assert.NotNil(t, tools[0].OfTool.InputSchema.Properties)
}
