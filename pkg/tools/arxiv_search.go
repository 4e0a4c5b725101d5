package tools

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

const (
	arxivEndpoint = "https://export.arxiv.org/api/query"
	// arxivMaxDocs caps how many papers a single query returns
	arxivMaxDocs = 3
	// arxivMaxChars caps each abstract shown to the model
	arxivMaxChars = 1000
)

// arxivFeed is the subset of the arXiv Atom feed we read
type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []string `xml:"author>name"`
}

// ArxivSearchToolResult represents the result of an arXiv query
type ArxivSearchToolResult struct {
	query   string
	results []tooltypes.ArxivPaper
	err     string
}

// GetResult returns the paper abstracts wrapped in document envelopes
func (r *ArxivSearchToolResult) GetResult() string {
	if len(r.results) == 0 {
		return "No results found."
	}

	docs := make([]string, 0, len(r.results))
	for _, paper := range r.results {
		docs = append(docs, fmt.Sprintf("<Document source=%q title=%q>\nAuthors: %s\nPublished: %s\n\n%s\n</Document>",
			paper.URL, paper.Title, strings.Join(paper.Authors, ", "), paper.Published, paper.Summary))
	}
	return strings.Join(docs, "\n\n---\n\n")
}

// GetError returns the error message
func (r *ArxivSearchToolResult) GetError() string {
	return r.err
}

// IsError returns true if the result contains an error
func (r *ArxivSearchToolResult) IsError() bool {
	return r.err != ""
}

// AssistantFacing returns the string representation for the AI assistant
func (r *ArxivSearchToolResult) AssistantFacing() string {
	result := ""
	if !r.IsError() {
		result = r.GetResult()
	}
	return tooltypes.StringifyToolResult(result, r.err)
}

// StructuredData returns structured metadata about the query
func (r *ArxivSearchToolResult) StructuredData() tooltypes.StructuredToolResult {
	result := tooltypes.StructuredToolResult{
		ToolName:  "arxiv_search",
		Success:   !r.IsError(),
		Timestamp: time.Now(),
	}

	if r.IsError() {
		result.Error = r.GetError()
		return result
	}

	result.Metadata = &tooltypes.ArxivSearchMetadata{
		Query:   r.query,
		Results: r.results,
	}
	return result
}

// ArxivSearchTool queries the arXiv paper catalogue
type ArxivSearchTool struct {
	client   *http.Client
	endpoint string
}

// ArxivSearchInput defines the input parameters for the arXiv tool
type ArxivSearchInput struct {
	Query string `json:"query" jsonschema:"description=Keywords, author or title to search arXiv for"`
}

// Name returns the name of the tool
func (t *ArxivSearchTool) Name() string {
	return "arxiv_search"
}

// GenerateSchema generates the JSON schema for the tool's input parameters
func (t *ArxivSearchTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[ArxivSearchInput]()
}

// Description returns the description of the arXiv tool
func (t *ArxivSearchTool) Description() string {
	return `Search arXiv for academic papers. Returns up to 3 matches with title, link and the beginning of the abstract.

Use this for questions about scientific publications, their authors or publication dates.
`
}

// TracingKVs returns tracing key-value pairs for observability
func (t *ArxivSearchTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input := &ArxivSearchInput{}
	err := json.Unmarshal([]byte(parameters), input)
	if err != nil {
		return nil, err
	}

	return []attribute.KeyValue{
		attribute.String("query", input.Query),
	}, nil
}

// ValidateInput validates the input parameters for the tool
func (t *ArxivSearchTool) ValidateInput(_ tooltypes.State, parameters string) error {
	var input ArxivSearchInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if strings.TrimSpace(input.Query) == "" {
		return errors.New("query is required")
	}

	return nil
}

// Execute performs the query against the arXiv API
func (t *ArxivSearchTool) Execute(ctx context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	input := &ArxivSearchInput{}
	if err := json.Unmarshal([]byte(parameters), input); err != nil {
		return &ArxivSearchToolResult{err: err.Error()}
	}

	client := t.client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	endpoint := t.endpoint
	if endpoint == "" {
		endpoint = arxivEndpoint
	}

	params := url.Values{}
	params.Set("search_query", "all:"+input.Query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", arxivMaxDocs))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return &ArxivSearchToolResult{query: input.Query, err: err.Error()}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &ArxivSearchToolResult{query: input.Query, err: errors.Wrap(err, "arxiv request failed").Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ArxivSearchToolResult{query: input.Query, err: fmt.Sprintf("arxiv API returned %d", resp.StatusCode)}
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return &ArxivSearchToolResult{query: input.Query, err: errors.Wrap(err, "failed to decode arxiv feed").Error()}
	}

	results := make([]tooltypes.ArxivPaper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		abstract := strings.Join(strings.Fields(entry.Summary), " ")
		if len(abstract) > arxivMaxChars {
			abstract = abstract[:arxivMaxChars] + "..."
		}
		authors := make([]string, 0, len(entry.Authors))
		for _, name := range entry.Authors {
			authors = append(authors, strings.TrimSpace(name))
		}
		results = append(results, tooltypes.ArxivPaper{
			Title:     strings.Join(strings.Fields(entry.Title), " "),
			URL:       strings.TrimSpace(entry.ID),
			Authors:   authors,
			Published: strings.TrimSpace(entry.Published),
			Summary:   abstract,
		})
	}

	return &ArxivSearchToolResult{
		query:   input.Query,
		results: results,
	}
}
