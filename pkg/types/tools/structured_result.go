package tools

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/pkg/errors"
)

// StructuredToolResult represents a tool's execution result with structured metadata
type StructuredToolResult struct {
	ToolName  string       `json:"toolName"`
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
	Metadata  ToolMetadata `json:"metadata,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// rawStructuredToolResult is used for JSON marshaling/unmarshaling
type rawStructuredToolResult struct {
	ToolName     string          `json:"toolName"`
	Success      bool            `json:"success"`
	Error        string          `json:"error,omitempty"`
	MetadataType string          `json:"metadataType,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// MarshalJSON implements custom JSON marshaling for StructuredToolResult
func (s StructuredToolResult) MarshalJSON() ([]byte, error) {
	raw := rawStructuredToolResult{
		ToolName:  s.ToolName,
		Success:   s.Success,
		Error:     s.Error,
		Timestamp: s.Timestamp,
	}

	if s.Metadata != nil {
		raw.MetadataType = s.Metadata.ToolType()

		metadataBytes, err := json.Marshal(s.Metadata)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal metadata")
		}
		raw.Metadata = metadataBytes
	}

	return json.Marshal(raw)
}

// metadataTypeRegistry maps metadata type strings to their corresponding Go types
var metadataTypeRegistry = map[string]reflect.Type{
	"calculator":         reflect.TypeOf(CalculatorMetadata{}),
	"web_search":         reflect.TypeOf(WebSearchMetadata{}),
	"wikipedia_search":   reflect.TypeOf(WikipediaSearchMetadata{}),
	"arxiv_search":       reflect.TypeOf(ArxivSearchMetadata{}),
	"youtube_transcript": reflect.TypeOf(YouTubeTranscriptMetadata{}),
	"file_inspect":       reflect.TypeOf(FileInspectMetadata{}),
	"spreadsheet":        reflect.TypeOf(SpreadsheetMetadata{}),
	"web_fetch":          reflect.TypeOf(WebFetchMetadata{}),
	"thinking":           reflect.TypeOf(ThinkingMetadata{}),
	"mcp_tool":           reflect.TypeOf(MCPToolMetadata{}),
}

// UnmarshalJSON implements custom JSON unmarshaling for StructuredToolResult
func (s *StructuredToolResult) UnmarshalJSON(data []byte) error {
	var raw rawStructuredToolResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.ToolName = raw.ToolName
	s.Success = raw.Success
	s.Error = raw.Error
	s.Timestamp = raw.Timestamp

	if raw.MetadataType != "" && len(raw.Metadata) > 0 {
		metadataType, exists := metadataTypeRegistry[raw.MetadataType]
		if !exists {
			// Unknown metadata type, leave as nil
			return nil
		}

		metadataPtr := reflect.New(metadataType)
		if err := json.Unmarshal(raw.Metadata, metadataPtr.Interface()); err != nil {
			return errors.Wrapf(err, "failed to unmarshal metadata of type %s", raw.MetadataType)
		}

		s.Metadata = metadataPtr.Elem().Interface().(ToolMetadata)
	}

	return nil
}

// ToolMetadata is a marker interface for tool-specific metadata structures
type ToolMetadata interface {
	ToolType() string
}

// CalculatorMetadata captures the inputs and output of an arithmetic operation
type CalculatorMetadata struct {
	Operation string    `json:"operation"`
	Operands  []float64 `json:"operands"`
	Value     float64   `json:"value"`
}

func (m CalculatorMetadata) ToolType() string { return "calculator" }

// SearchResult is a single hit returned by a search tool
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet"`
}

// WebSearchMetadata captures a web search query and its hits
type WebSearchMetadata struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

func (m WebSearchMetadata) ToolType() string { return "web_search" }

// WikipediaSearchMetadata captures a Wikipedia lookup
type WikipediaSearchMetadata struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

func (m WikipediaSearchMetadata) ToolType() string { return "wikipedia_search" }

// ArxivPaper is one entry from the arXiv Atom feed
type ArxivPaper struct {
	Title     string   `json:"title"`
	URL       string   `json:"url,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Published string   `json:"published,omitempty"`
	Summary   string   `json:"summary"`
}

// ArxivSearchMetadata captures an arXiv query and the matched papers
type ArxivSearchMetadata struct {
	Query   string       `json:"query"`
	Results []ArxivPaper `json:"results"`
}

func (m ArxivSearchMetadata) ToolType() string { return "arxiv_search" }

// YouTubeTranscriptMetadata captures a transcript fetch
type YouTubeTranscriptMetadata struct {
	URL       string `json:"url"`
	VideoID   string `json:"videoId"`
	Language  string `json:"language,omitempty"`
	CharCount int    `json:"charCount"`
	Truncated bool   `json:"truncated"`
}

func (m YouTubeTranscriptMetadata) ToolType() string { return "youtube_transcript" }

// FileInspectMetadata captures an inspection of the task attachment
type FileInspectMetadata struct {
	FilePath    string `json:"filePath"`
	FileType    string `json:"fileType"`
	SizeBytes   int64  `json:"sizeBytes"`
	Transcribed bool   `json:"transcribed,omitempty"`
}

func (m FileInspectMetadata) ToolType() string { return "file_inspect" }

// SpreadsheetMetadata captures a spreadsheet read
type SpreadsheetMetadata struct {
	FilePath string `json:"filePath"`
	Sheet    string `json:"sheet,omitempty"`
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
}

func (m SpreadsheetMetadata) ToolType() string { return "spreadsheet" }

// WebFetchMetadata captures a page fetch and conversion
type WebFetchMetadata struct {
	URL           string `json:"url"`
	ContentType   string `json:"contentType,omitempty"`
	Size          int64  `json:"size,omitempty"`
	ProcessedType string `json:"processedType,omitempty"`
}

func (m WebFetchMetadata) ToolType() string { return "web_fetch" }

// ThinkingMetadata captures a reasoning scratchpad entry
type ThinkingMetadata struct {
	Thought string `json:"thought"`
}

func (m ThinkingMetadata) ToolType() string { return "thinking" }

// MCPToolMetadata captures an MCP tool invocation
type MCPToolMetadata struct {
	MCPToolName   string         `json:"mcpToolName"`
	ServerName    string         `json:"serverName"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	Content       []MCPContent   `json:"content,omitempty"`
	ExecutionTime time.Duration  `json:"executionTime"`
}

// MCPContent represents a content block returned by an MCP server
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Data string `json:"data,omitempty"`
}

func (m MCPToolMetadata) ToolType() string { return "mcp_tool" }

// ExtractMetadata is a helper that handles both pointer and value type assertions
// This is necessary because JSON unmarshaling creates value types, while
// direct creation uses pointer types
func ExtractMetadata(metadata ToolMetadata, target interface{}) bool {
	if metadata == nil {
		return false
	}

	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr || targetValue.IsNil() {
		return false
	}

	targetElem := targetValue.Elem()
	metadataValue := reflect.ValueOf(metadata)

	if metadataValue.Kind() == reflect.Ptr && !metadataValue.IsNil() {
		metadataValue = metadataValue.Elem()
	}

	if targetElem.Type() != metadataValue.Type() {
		return false
	}

	targetElem.Set(metadataValue)
	return true
}
