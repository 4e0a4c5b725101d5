package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
	"github.com/abonvalle/hf-agent-course/pkg/utils"
)

const (
	wikipediaEndpoint = "https://en.wikipedia.org/w/api.php"
	// wikipediaMaxDocs caps how many articles a single lookup returns
	wikipediaMaxDocs = 2
	// wikipediaMaxChars caps each article extract shown to the model
	wikipediaMaxChars = 4000
)

// wikipediaQueryResponse is the subset of the MediaWiki API response we read
type wikipediaQueryResponse struct {
	Query struct {
		Pages map[string]struct {
			PageID  int    `json:"pageid"`
			Index   int    `json:"index"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// WikipediaSearchToolResult represents the result of a Wikipedia lookup
type WikipediaSearchToolResult struct {
	query   string
	results []tooltypes.SearchResult
	err     string
}

// GetResult returns the article extracts wrapped in document envelopes
func (r *WikipediaSearchToolResult) GetResult() string {
	if len(r.results) == 0 {
		return "No results found."
	}

	docs := make([]string, 0, len(r.results))
	for _, result := range r.results {
		docs = append(docs, fmt.Sprintf("<Document source=%q>\n%s\n</Document>", result.URL, result.Snippet))
	}
	return strings.Join(docs, "\n\n---\n\n")
}

// GetError returns the error message
func (r *WikipediaSearchToolResult) GetError() string {
	return r.err
}

// IsError returns true if the result contains an error
func (r *WikipediaSearchToolResult) IsError() bool {
	return r.err != ""
}

// AssistantFacing returns the string representation for the AI assistant
func (r *WikipediaSearchToolResult) AssistantFacing() string {
	result := ""
	if !r.IsError() {
		result = r.GetResult()
	}
	return tooltypes.StringifyToolResult(result, r.err)
}

// StructuredData returns structured metadata about the lookup
func (r *WikipediaSearchToolResult) StructuredData() tooltypes.StructuredToolResult {
	result := tooltypes.StructuredToolResult{
		ToolName:  "wikipedia_search",
		Success:   !r.IsError(),
		Timestamp: time.Now(),
	}

	if r.IsError() {
		result.Error = r.GetError()
		return result
	}

	result.Metadata = &tooltypes.WikipediaSearchMetadata{
		Query:   r.query,
		Results: r.results,
	}
	return result
}

// WikipediaSearchTool looks up articles via the MediaWiki API
type WikipediaSearchTool struct {
	client   *http.Client
	endpoint string
}

// WikipediaSearchInput defines the input parameters for the Wikipedia tool
type WikipediaSearchInput struct {
	Query string `json:"query" jsonschema:"description=The topic or phrase to look up on Wikipedia"`
}

// Name returns the name of the tool
func (t *WikipediaSearchTool) Name() string {
	return "wikipedia_search"
}

// GenerateSchema generates the JSON schema for the tool's input parameters
func (t *WikipediaSearchTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[WikipediaSearchInput]()
}

// Description returns the description of the Wikipedia tool
func (t *WikipediaSearchTool) Description() string {
	return `Look up a topic on Wikipedia. Returns plain-text extracts of up to 2 matching articles.

Prefer this over web_search for encyclopedic facts such as historical events, biographies, geography and science.
`
}

// TracingKVs returns tracing key-value pairs for observability
func (t *WikipediaSearchTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input := &WikipediaSearchInput{}
	err := json.Unmarshal([]byte(parameters), input)
	if err != nil {
		return nil, err
	}

	return []attribute.KeyValue{
		attribute.String("query", input.Query),
	}, nil
}

// ValidateInput validates the input parameters for the tool
func (t *WikipediaSearchTool) ValidateInput(_ tooltypes.State, parameters string) error {
	var input WikipediaSearchInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if strings.TrimSpace(input.Query) == "" {
		return errors.New("query is required")
	}

	return nil
}

// Execute performs the lookup against the MediaWiki API
func (t *WikipediaSearchTool) Execute(ctx context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	input := &WikipediaSearchInput{}
	if err := json.Unmarshal([]byte(parameters), input); err != nil {
		return &WikipediaSearchToolResult{err: err.Error()}
	}

	client := t.client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	endpoint := t.endpoint
	if endpoint == "" {
		endpoint = wikipediaEndpoint
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("generator", "search")
	params.Set("gsrsearch", input.Query)
	params.Set("gsrlimit", fmt.Sprintf("%d", wikipediaMaxDocs))
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("exlimit", fmt.Sprintf("%d", wikipediaMaxDocs))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return &WikipediaSearchToolResult{query: input.Query, err: err.Error()}
	}
	req.Header.Set("User-Agent", "hfagent/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return &WikipediaSearchToolResult{query: input.Query, err: errors.Wrap(err, "wikipedia request failed").Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &WikipediaSearchToolResult{query: input.Query, err: fmt.Sprintf("wikipedia API returned %d", resp.StatusCode)}
	}

	var decoded wikipediaQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return &WikipediaSearchToolResult{query: input.Query, err: errors.Wrap(err, "failed to decode wikipedia response").Error()}
	}

	type page struct {
		index   int
		title   string
		extract string
	}
	pages := make([]page, 0, len(decoded.Query.Pages))
	for _, p := range decoded.Query.Pages {
		pages = append(pages, page{index: p.Index, title: p.Title, extract: p.Extract})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].index < pages[j].index })

	results := make([]tooltypes.SearchResult, 0, len(pages))
	for _, p := range pages {
		extract, _ := utils.TruncateContent(strings.TrimSpace(p.extract), wikipediaMaxChars)
		results = append(results, tooltypes.SearchResult{
			Title:   p.title,
			URL:     "https://en.wikipedia.org/wiki/" + url.PathEscape(strings.ReplaceAll(p.title, " ", "_")),
			Snippet: extract,
		})
	}

	return &WikipediaSearchToolResult{
		query:   input.Query,
		results: results,
	}
}
