package tools

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"

	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

// spreadsheetPreviewRows is how many data rows the summary shows
const spreadsheetPreviewRows = 5

// SpreadsheetToolResult represents the result of a spreadsheet read
type SpreadsheetToolResult struct {
	path    string
	sheet   string
	rows    int
	columns int
	summary string
	err     string
}

// GetResult returns the sheet summary
func (r *SpreadsheetToolResult) GetResult() string {
	return r.summary
}

// GetError returns the error message
func (r *SpreadsheetToolResult) GetError() string {
	return r.err
}

// IsError returns true if the result contains an error
func (r *SpreadsheetToolResult) IsError() bool {
	return r.err != ""
}

// AssistantFacing returns the string representation for the AI assistant
func (r *SpreadsheetToolResult) AssistantFacing() string {
	result := ""
	if !r.IsError() {
		result = r.summary
	}
	return tooltypes.StringifyToolResult(result, r.err)
}

// StructuredData returns structured metadata about the read
func (r *SpreadsheetToolResult) StructuredData() tooltypes.StructuredToolResult {
	result := tooltypes.StructuredToolResult{
		ToolName:  "spreadsheet",
		Success:   !r.IsError(),
		Timestamp: time.Now(),
	}

	if r.IsError() {
		result.Error = r.GetError()
		return result
	}

	result.Metadata = &tooltypes.SpreadsheetMetadata{
		FilePath: r.path,
		Sheet:    r.sheet,
		Rows:     r.rows,
		Columns:  r.columns,
	}
	return result
}

// SpreadsheetTool reads Excel and CSV files. Parsed sheets are cached by
// absolute path so repeated queries against the same file stay cheap.
type SpreadsheetTool struct {
	mu    sync.Mutex
	cache map[string]*sheetData
}

type sheetData struct {
	sheet string
	rows  [][]string
}

// NewSpreadsheetTool creates a spreadsheet tool with an empty cache
func NewSpreadsheetTool() *SpreadsheetTool {
	return &SpreadsheetTool{cache: make(map[string]*sheetData)}
}

// SpreadsheetInput defines the input parameters for the spreadsheet tool
type SpreadsheetInput struct {
	Path    string `json:"path" jsonschema:"description=Local path of the .xlsx, .xls or .csv file"`
	Sheet   string `json:"sheet,omitempty" jsonschema:"description=Sheet name to read; defaults to the first sheet"`
	MaxRows int    `json:"max_rows,omitempty" jsonschema:"description=Maximum number of data rows to show (default 5)"`
}

// Name returns the name of the tool
func (t *SpreadsheetTool) Name() string {
	return "spreadsheet"
}

// GenerateSchema generates the JSON schema for the tool's input parameters
func (t *SpreadsheetTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[SpreadsheetInput]()
}

// Description returns the description of the spreadsheet tool
func (t *SpreadsheetTool) Description() string {
	return `Read a spreadsheet file (.xlsx, .xls or .csv). Returns the column names and the first rows of the selected sheet.

Use this on task attachments that are spreadsheets. Increase max_rows when the question needs more than the default preview.
`
}

// TracingKVs returns tracing key-value pairs for observability
func (t *SpreadsheetTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input := &SpreadsheetInput{}
	err := json.Unmarshal([]byte(parameters), input)
	if err != nil {
		return nil, err
	}

	return []attribute.KeyValue{
		attribute.String("path", input.Path),
		attribute.String("sheet", input.Sheet),
	}, nil
}

// ValidateInput validates the input parameters for the tool
func (t *SpreadsheetTool) ValidateInput(_ tooltypes.State, parameters string) error {
	var input SpreadsheetInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if input.Path == "" {
		return errors.New("path is required")
	}
	if _, err := os.Stat(input.Path); os.IsNotExist(err) {
		return errors.Errorf("local file not found: %s", input.Path)
	}

	switch strings.ToLower(filepath.Ext(input.Path)) {
	case ".xlsx", ".xls", ".csv":
	default:
		return errors.Errorf("unsupported spreadsheet format: %s", filepath.Ext(input.Path))
	}

	if input.MaxRows < 0 {
		return errors.New("max_rows must be positive")
	}

	return nil
}

// Execute loads the sheet (or serves it from cache) and summarises it
func (t *SpreadsheetTool) Execute(_ context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	input := &SpreadsheetInput{}
	if err := json.Unmarshal([]byte(parameters), input); err != nil {
		return &SpreadsheetToolResult{err: err.Error()}
	}

	data, err := t.load(input.Path, input.Sheet)
	if err != nil {
		return &SpreadsheetToolResult{path: input.Path, err: err.Error()}
	}

	if len(data.rows) == 0 {
		return &SpreadsheetToolResult{path: input.Path, sheet: data.sheet, err: "sheet is empty"}
	}

	header := data.rows[0]
	body := data.rows[1:]

	maxRows := input.MaxRows
	if maxRows == 0 {
		maxRows = spreadsheetPreviewRows
	}
	preview := body
	if len(preview) > maxRows {
		preview = preview[:maxRows]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Columns: %s\n", strings.Join(header, ", "))
	fmt.Fprintf(&sb, "First %d rows:\n", len(preview))
	for _, row := range preview {
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "(%d data rows, %d columns total)", len(body), len(header))

	return &SpreadsheetToolResult{
		path:    input.Path,
		sheet:   data.sheet,
		rows:    len(body),
		columns: len(header),
		summary: sb.String(),
	}
}

func (t *SpreadsheetTool) load(path, sheet string) (*sheetData, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve path")
	}
	cacheKey := absPath + "#" + sheet

	t.mu.Lock()
	defer t.mu.Unlock()

	if cached, ok := t.cache[cacheKey]; ok {
		return cached, nil
	}

	var data *sheetData
	if strings.EqualFold(filepath.Ext(absPath), ".csv") {
		data, err = loadCSV(absPath)
	} else {
		data, err = loadExcel(absPath, sheet)
	}
	if err != nil {
		return nil, err
	}

	t.cache[cacheKey] = data
	return data, nil
}

func loadCSV(path string) (*sheetData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	return &sheetData{rows: rows}, nil
}

func loadExcel(path, sheet string) (*sheetData, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()

	if sheet == "" {
		sheets := file.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", sheet)
	}

	return &sheetData{sheet: sheet, rows: rows}, nil
}
