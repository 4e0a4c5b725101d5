package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

func TestWikipediaSearchExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "query", r.URL.Query().Get("action"))
		assert.Equal(t, "Ada Lovelace", r.URL.Query().Get("gsrsearch"))

		fmt.Fprint(w, `{"query":{"pages":{
			"2":{"pageid":2,"index":2,"title":"Charles Babbage","extract":"Babbage designed the Analytical Engine."},
			"1":{"pageid":1,"index":1,"title":"Ada Lovelace","extract":"Ada Lovelace was an English mathematician."}
		}}}`)
	}))
	defer server.Close()

	tool := &WikipediaSearchTool{endpoint: server.URL}
	result := tool.Execute(context.TODO(), nil, `{"query":"Ada Lovelace"}`)
	require.False(t, result.IsError(), result.GetError())

	output := result.GetResult()
	assert.Contains(t, output, `<Document source="https://en.wikipedia.org/wiki/Ada_Lovelace">`)
	assert.Contains(t, output, "Ada Lovelace was an English mathematician.")
	assert.Contains(t, output, "\n\n---\n\n")

	var meta tooltypes.WikipediaSearchMetadata
	require.True(t, tooltypes.ExtractMetadata(result.StructuredData().Metadata, &meta))
	require.Len(t, meta.Results, 2)
	// Results come back in search ranking order, not map order
	assert.Equal(t, "Ada Lovelace", meta.Results[0].Title)
	assert.Equal(t, "Charles Babbage", meta.Results[1].Title)
}

func TestWikipediaSearchNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"query":{"pages":{}}}`)
	}))
	defer server.Close()

	tool := &WikipediaSearchTool{endpoint: server.URL}
	result := tool.Execute(context.TODO(), nil, `{"query":"zzzz"}`)

	require.False(t, result.IsError())
	assert.Equal(t, "No results found.", result.GetResult())
}

func TestWikipediaSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tool := &WikipediaSearchTool{endpoint: server.URL}
	result := tool.Execute(context.TODO(), nil, `{"query":"x"}`)

	require.True(t, result.IsError())
	assert.Contains(t, result.GetError(), "503")
}

func TestWikipediaSearchValidateInput(t *testing.T) {
	tool := &WikipediaSearchTool{}

	assert.Error(t, tool.ValidateInput(nil, `{"query":""}`))
	assert.Error(t, tool.ValidateInput(nil, `not json`))
	assert.NoError(t, tool.ValidateInput(nil, `{"query":"Ada Lovelace"}`))
}
