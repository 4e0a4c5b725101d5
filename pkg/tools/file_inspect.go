package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
	"github.com/abonvalle/hf-agent-course/pkg/utils"
)

// fileInspectMaxChars caps text file content shown to the model
const fileInspectMaxChars = 20000

// extraMimeTypes covers extensions the platform mime table may not know
var extraMimeTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/x-wav",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".py":   "text/x-python",
	".txt":  "text/plain",
	".csv":  "text/csv",
}

// transcriber abstracts the speech-to-text backend
type transcriber interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// FileInspectToolResult represents the result of inspecting a task file
type FileInspectToolResult struct {
	path        string
	fileType    string
	sizeBytes   int64
	content     string
	transcribed bool
	err         string
}

// GetResult returns the inspection output
func (r *FileInspectToolResult) GetResult() string {
	return r.content
}

// GetError returns the error message
func (r *FileInspectToolResult) GetError() string {
	return r.err
}

// IsError returns true if the result contains an error
func (r *FileInspectToolResult) IsError() bool {
	return r.err != ""
}

// AssistantFacing returns the string representation for the AI assistant
func (r *FileInspectToolResult) AssistantFacing() string {
	result := ""
	if !r.IsError() {
		result = r.content
	}
	return tooltypes.StringifyToolResult(result, r.err)
}

// StructuredData returns structured metadata about the inspection
func (r *FileInspectToolResult) StructuredData() tooltypes.StructuredToolResult {
	result := tooltypes.StructuredToolResult{
		ToolName:  "file_inspect",
		Success:   !r.IsError(),
		Timestamp: time.Now(),
	}

	if r.IsError() {
		result.Error = r.GetError()
		return result
	}

	result.Metadata = &tooltypes.FileInspectMetadata{
		FilePath:    r.path,
		FileType:    r.fileType,
		SizeBytes:   r.sizeBytes,
		Transcribed: r.transcribed,
	}
	return result
}

// FileInspectTool inspects task attachments and transcribes audio files
type FileInspectTool struct {
	transcriber transcriber
}

// FileInspectInput defines the input parameters for the file tool
type FileInspectInput struct {
	Path   string `json:"path" jsonschema:"description=Local path of the file to inspect"`
	Action string `json:"action,omitempty" jsonschema:"description=What to do with the file,enum=inspect,enum=transcribe,default=inspect"`
}

// Name returns the name of the tool
func (t *FileInspectTool) Name() string {
	return "file_inspect"
}

// GenerateSchema generates the JSON schema for the tool's input parameters
func (t *FileInspectTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[FileInspectInput]()
}

// Description returns the description of the file tool
func (t *FileInspectTool) Description() string {
	return `Inspect or process a local file. Text files are shown with line numbers, spreadsheets are summarised, and audio files can be transcribed to text with action='transcribe'.

Use this on the attachment path given with a question before deciding how to answer.
`
}

// TracingKVs returns tracing key-value pairs for observability
func (t *FileInspectTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input := &FileInspectInput{}
	err := json.Unmarshal([]byte(parameters), input)
	if err != nil {
		return nil, err
	}

	return []attribute.KeyValue{
		attribute.String("path", input.Path),
		attribute.String("action", input.Action),
	}, nil
}

// ValidateInput validates the input parameters for the tool
func (t *FileInspectTool) ValidateInput(_ tooltypes.State, parameters string) error {
	var input FileInspectInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if input.Path == "" {
		return errors.New("path is required")
	}
	if _, err := os.Stat(input.Path); os.IsNotExist(err) {
		return errors.Errorf("file not found: %s", input.Path)
	}

	switch input.Action {
	case "", "inspect", "transcribe":
	default:
		return errors.Errorf("unsupported action: %s", input.Action)
	}

	return nil
}

// Execute inspects the file according to its type and the requested action
func (t *FileInspectTool) Execute(ctx context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	input := &FileInspectInput{}
	if err := json.Unmarshal([]byte(parameters), input); err != nil {
		return &FileInspectToolResult{err: err.Error()}
	}

	info, err := os.Stat(input.Path)
	if err != nil {
		return &FileInspectToolResult{path: input.Path, err: fmt.Sprintf("file not found: %s", input.Path)}
	}

	ext := strings.ToLower(filepath.Ext(input.Path))
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = extraMimeTypes[ext]
	}

	result := &FileInspectToolResult{
		path:      input.Path,
		fileType:  mimeType,
		sizeBytes: info.Size(),
	}

	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		if input.Action == "transcribe" {
			return t.transcribe(ctx, result)
		}
		result.content = "Audio file detected. To transcribe, use action='transcribe'."
	case ext == ".xlsx" || ext == ".xls" || ext == ".csv":
		return t.delegateToSpreadsheet(ctx, result)
	case strings.HasPrefix(mimeType, "text/") || ext == ".py" || ext == ".txt":
		return t.inspectText(result)
	default:
		result.content = fmt.Sprintf("File '%s' (%s), size: %d bytes.", input.Path, mimeType, info.Size())
	}

	return result
}

func (t *FileInspectTool) transcribe(ctx context.Context, result *FileInspectToolResult) tooltypes.ToolResult {
	client := t.transcriber
	if client == nil {
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			result.err = "OPENAI_API_KEY is not set, cannot transcribe audio"
			return result
		}
		client = openai.NewClient(apiKey)
	}

	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: result.path,
	})
	if err != nil {
		result.err = errors.Wrap(err, "audio transcription failed").Error()
		return result
	}

	result.content = resp.Text
	result.transcribed = true
	return result
}

func (t *FileInspectTool) delegateToSpreadsheet(ctx context.Context, result *FileInspectToolResult) tooltypes.ToolResult {
	params, _ := json.Marshal(SpreadsheetInput{Path: result.path})
	sheetResult := defaultSpreadsheet.Execute(ctx, nil, string(params))
	if sheetResult.IsError() {
		result.err = sheetResult.GetError()
		return result
	}

	result.content = sheetResult.GetResult()
	return result
}

func (t *FileInspectTool) inspectText(result *FileInspectToolResult) tooltypes.ToolResult {
	content, err := os.ReadFile(result.path)
	if err != nil {
		result.err = errors.Wrapf(err, "failed to read %s", result.path).Error()
		return result
	}

	text, _ := utils.TruncateContent(string(content), fileInspectMaxChars)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	result.content = utils.ContentWithLineNumber(lines, 1)
	return result
}
