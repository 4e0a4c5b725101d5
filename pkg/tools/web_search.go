package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

const (
	tavilyEndpoint = "https://api.tavily.com/search"
	// snippetMaxChars caps each result snippet shown to the model
	snippetMaxChars = 300
)

// TavilyRequest represents a request to the Tavily search API
type TavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth,omitempty"`
	IncludeAnswer bool   `json:"include_answer,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
}

// TavilyResponse represents the response from the Tavily search API
type TavilyResponse struct {
	Answer  string         `json:"answer,omitempty"`
	Query   string         `json:"query"`
	Results []TavilyResult `json:"results"`
}

// TavilyResult represents a single search result
type TavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// WebSearchToolResult represents the result of a web search
type WebSearchToolResult struct {
	query   string
	results []tooltypes.SearchResult
	err     string
}

// GetResult returns the formatted search results
func (r *WebSearchToolResult) GetResult() string {
	if len(r.results) == 0 {
		return "No results found."
	}

	formatted := make([]string, 0, len(r.results))
	for i, result := range r.results {
		formatted = append(formatted, fmt.Sprintf("%d. %s\nURL: %s\nSnippet: %s", i+1, result.Title, result.URL, result.Snippet))
	}
	return strings.Join(formatted, "\n\n")
}

// GetError returns the error message
func (r *WebSearchToolResult) GetError() string {
	return r.err
}

// IsError returns true if the result contains an error
func (r *WebSearchToolResult) IsError() bool {
	return r.err != ""
}

// AssistantFacing returns the string representation for the AI assistant
func (r *WebSearchToolResult) AssistantFacing() string {
	result := ""
	if !r.IsError() {
		result = r.GetResult()
	}
	return tooltypes.StringifyToolResult(result, r.err)
}

// StructuredData returns structured metadata about the search
func (r *WebSearchToolResult) StructuredData() tooltypes.StructuredToolResult {
	result := tooltypes.StructuredToolResult{
		ToolName:  "web_search",
		Success:   !r.IsError(),
		Timestamp: time.Now(),
	}

	if r.IsError() {
		result.Error = r.GetError()
		return result
	}

	result.Metadata = &tooltypes.WebSearchMetadata{
		Query:   r.query,
		Results: r.results,
	}
	return result
}

// WebSearchTool searches the web via the Tavily API
type WebSearchTool struct {
	client   *http.Client
	endpoint string
}

// WebSearchInput defines the input parameters for the web search tool
type WebSearchInput struct {
	Query      string `json:"query" jsonschema:"description=The search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return (1-10, default 3)"`
}

// Name returns the name of the tool
func (t *WebSearchTool) Name() string {
	return "web_search"
}

// GenerateSchema generates the JSON schema for the tool's input parameters
func (t *WebSearchTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[WebSearchInput]()
}

// Description returns the description of the web search tool
func (t *WebSearchTool) Description() string {
	return `Search the web for current information. Returns the top results with titles, URLs and short snippets.

Use this tool when a question depends on facts you are not certain about, such as recent events, statistics or obscure trivia. Requires the TAVILY_API_KEY environment variable.
`
}

// TracingKVs returns tracing key-value pairs for observability
func (t *WebSearchTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input := &WebSearchInput{}
	err := json.Unmarshal([]byte(parameters), input)
	if err != nil {
		return nil, err
	}

	return []attribute.KeyValue{
		attribute.String("query", input.Query),
		attribute.Int("max_results", input.MaxResults),
	}, nil
}

// ValidateInput validates the input parameters for the tool
func (t *WebSearchTool) ValidateInput(_ tooltypes.State, parameters string) error {
	var input WebSearchInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if strings.TrimSpace(input.Query) == "" {
		return errors.New("query is required")
	}
	if input.MaxResults < 0 || input.MaxResults > 10 {
		return errors.New("max_results must be between 1 and 10")
	}

	return nil
}

// Execute performs the search against the Tavily API
func (t *WebSearchTool) Execute(ctx context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	input := &WebSearchInput{}
	if err := json.Unmarshal([]byte(parameters), input); err != nil {
		return &WebSearchToolResult{err: err.Error()}
	}

	apiKey := os.Getenv("TAVILY_API_KEY")
	if apiKey == "" {
		return &WebSearchToolResult{query: input.Query, err: "TAVILY_API_KEY is not set"}
	}

	maxResults := input.MaxResults
	if maxResults == 0 {
		maxResults = 3
	}

	response, err := t.search(ctx, TavilyRequest{
		APIKey:      apiKey,
		Query:       input.Query,
		SearchDepth: "basic",
		MaxResults:  maxResults,
	})
	if err != nil {
		return &WebSearchToolResult{query: input.Query, err: err.Error()}
	}

	results := make([]tooltypes.SearchResult, 0, len(response.Results))
	for _, result := range response.Results {
		snippet := strings.TrimSpace(result.Content)
		if len(snippet) > snippetMaxChars {
			snippet = strings.TrimRight(snippet[:snippetMaxChars], " ") + "..."
		}
		results = append(results, tooltypes.SearchResult{
			Title:   strings.TrimSpace(result.Title),
			URL:     strings.TrimSpace(result.URL),
			Snippet: snippet,
		})
	}

	return &WebSearchToolResult{
		query:   input.Query,
		results: results,
	}
}

func (t *WebSearchTool) search(ctx context.Context, request TavilyRequest) (*TavilyResponse, error) {
	client := t.client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search request")
	}

	endpoint := t.endpoint
	if endpoint == "" {
		endpoint = tavilyEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create search request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "search request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, errors.Errorf("search API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var response TavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, errors.Wrap(err, "failed to decode search response")
	}

	return &response, nil
}
