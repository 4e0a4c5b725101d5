package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

func TestWebSearchExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request TavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.Equal(t, "tvly-test", request.APIKey)
		assert.Equal(t, "capital of france", request.Query)
		assert.Equal(t, 3, request.MaxResults)

		json.NewEncoder(w).Encode(TavilyResponse{
			Query: request.Query,
			Results: []TavilyResult{
				{Title: "Paris", URL: "https://en.wikipedia.org/wiki/Paris", Content: "Paris is the capital of France.", Score: 0.98},
				{Title: "France", URL: "https://en.wikipedia.org/wiki/France", Content: strings.Repeat("long snippet ", 50), Score: 0.61},
			},
		})
	}))
	defer server.Close()

	t.Setenv("TAVILY_API_KEY", "tvly-test")
	tool := &WebSearchTool{endpoint: server.URL}

	result := tool.Execute(context.TODO(), nil, `{"query":"capital of france"}`)
	require.False(t, result.IsError(), result.GetError())

	output := result.GetResult()
	assert.Contains(t, output, "1. Paris")
	assert.Contains(t, output, "URL: https://en.wikipedia.org/wiki/Paris")
	assert.Contains(t, output, "Snippet: Paris is the capital of France.")

	var meta tooltypes.WebSearchMetadata
	require.True(t, tooltypes.ExtractMetadata(result.StructuredData().Metadata, &meta))
	require.Len(t, meta.Results, 2)
	// Long snippets are capped
	assert.LessOrEqual(t, len(meta.Results[1].Snippet), snippetMaxChars+3)
	assert.True(t, strings.HasSuffix(meta.Results[1].Snippet, "..."))
}

func TestWebSearchMissingAPIKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")

	tool := &WebSearchTool{}
	result := tool.Execute(context.TODO(), nil, `{"query":"anything"}`)

	require.True(t, result.IsError())
	assert.Contains(t, result.GetError(), "TAVILY_API_KEY")
}

func TestWebSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	t.Setenv("TAVILY_API_KEY", "tvly-bad")
	tool := &WebSearchTool{endpoint: server.URL}

	result := tool.Execute(context.TODO(), nil, `{"query":"anything"}`)
	require.True(t, result.IsError())
	assert.Contains(t, result.GetError(), "401")
}

func TestWebSearchValidateInput(t *testing.T) {
	tool := &WebSearchTool{}

	assert.Error(t, tool.ValidateInput(nil, `{"query":"  "}`))
	assert.Error(t, tool.ValidateInput(nil, `{"query":"x","max_results":11}`))
	assert.NoError(t, tool.ValidateInput(nil, `{"query":"x","max_results":5}`))
}

func TestWebSearchNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(TavilyResponse{Query: "x"})
	}))
	defer server.Close()

	t.Setenv("TAVILY_API_KEY", "tvly-test")
	tool := &WebSearchTool{endpoint: server.URL}

	result := tool.Execute(context.TODO(), nil, `{"query":"x"}`)
	require.False(t, result.IsError())
	assert.Equal(t, "No results found.", result.GetResult())
}
