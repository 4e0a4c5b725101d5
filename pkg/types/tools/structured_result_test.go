package tools

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredToolResultRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		result StructuredToolResult
	}{
		{
			name: "calculator metadata",
			result: StructuredToolResult{
				ToolName:  "calculator",
				Success:   true,
				Timestamp: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
				Metadata: &CalculatorMetadata{
					Operation: "multiply",
					Operands:  []float64{6, 7},
					Value:     42,
				},
			},
		},
		{
			name: "web search metadata",
			result: StructuredToolResult{
				ToolName:  "web_search",
				Success:   true,
				Timestamp: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
				Metadata: &WebSearchMetadata{
					Query: "capital of france",
					Results: []SearchResult{
						{Title: "Paris", URL: "https://en.wikipedia.org/wiki/Paris", Snippet: "Paris is the capital of France."},
					},
				},
			},
		},
		{
			name: "error result without metadata",
			result: StructuredToolResult{
				ToolName:  "youtube_transcript",
				Success:   false,
				Error:     "no transcript available",
				Timestamp: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.result)
			require.NoError(t, err)

			var decoded StructuredToolResult
			require.NoError(t, json.Unmarshal(data, &decoded))

			assert.Equal(t, tt.result.ToolName, decoded.ToolName)
			assert.Equal(t, tt.result.Success, decoded.Success)
			assert.Equal(t, tt.result.Error, decoded.Error)
			if tt.result.Metadata != nil {
				require.NotNil(t, decoded.Metadata)
				assert.Equal(t, tt.result.Metadata.ToolType(), decoded.Metadata.ToolType())
			}
		})
	}
}

func TestStructuredToolResultUnknownMetadataType(t *testing.T) {
	data := []byte(`{"toolName":"mystery","success":true,"metadataType":"not_registered","metadata":{"foo":"bar"},"timestamp":"2025-05-01T12:00:00Z"}`)

	var decoded StructuredToolResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "mystery", decoded.ToolName)
	assert.Nil(t, decoded.Metadata)
}

func TestExtractMetadata(t *testing.T) {
	t.Run("pointer metadata", func(t *testing.T) {
		meta := &SpreadsheetMetadata{FilePath: "data.xlsx", Sheet: "Sheet1", Rows: 3, Columns: 2}

		var out SpreadsheetMetadata
		require.True(t, ExtractMetadata(meta, &out))
		assert.Equal(t, "data.xlsx", out.FilePath)
		assert.Equal(t, 3, out.Rows)
	})

	t.Run("value metadata after unmarshal", func(t *testing.T) {
		result := StructuredToolResult{
			ToolName:  "thinking",
			Success:   true,
			Timestamp: time.Now().UTC(),
			Metadata:  &ThinkingMetadata{Thought: "check the units"},
		}
		data, err := json.Marshal(result)
		require.NoError(t, err)

		var decoded StructuredToolResult
		require.NoError(t, json.Unmarshal(data, &decoded))

		var out ThinkingMetadata
		require.True(t, ExtractMetadata(decoded.Metadata, &out))
		assert.Equal(t, "check the units", out.Thought)
	})

	t.Run("type mismatch", func(t *testing.T) {
		var out CalculatorMetadata
		assert.False(t, ExtractMetadata(&ThinkingMetadata{Thought: "x"}, &out))
	})

	t.Run("nil metadata", func(t *testing.T) {
		var out CalculatorMetadata
		assert.False(t, ExtractMetadata(nil, &out))
	})
}

func TestStringifyToolResult(t *testing.T) {
	out := StringifyToolResult("42", "")
	assert.Contains(t, out, "<result>\n42\n</result>")
	assert.NotContains(t, out, "<error>")

	out = StringifyToolResult("", "boom")
	assert.Contains(t, out, "<error>\nboom\n</error>")

	out = StringifyToolResult("partial", "boom")
	assert.Contains(t, out, "<error>")
	assert.Contains(t, out, "<result>")
}

func TestBaseToolResult(t *testing.T) {
	ok := BaseToolResult{Result: "done"}
	assert.False(t, ok.IsError())
	assert.Equal(t, "done", ok.GetResult())
	assert.True(t, ok.StructuredData().Success)

	bad := BaseToolResult{Error: "invalid input"}
	assert.True(t, bad.IsError())
	assert.Equal(t, "invalid input", bad.GetError())
	assert.False(t, bad.StructuredData().Success)
	assert.Contains(t, bad.AssistantFacing(), "invalid input")
}
