package tools

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

const (
	youtubeWatchBase = "https://www.youtube.com/watch?v="
	// transcriptMaxChars caps the transcript text returned to the model
	transcriptMaxChars = 20000
)

// videoIDPattern matches the 11-character video ID in watch and short URLs
var videoIDPattern = regexp.MustCompile(`(?:v=|youtu\.be/)([A-Za-z0-9_-]{11})`)

// captionTracksPattern locates the caption track list in the watch page
var captionTracksPattern = regexp.MustCompile(`"captionTracks":(\[.*?\])`)

// captionTrack is a single caption track advertised by the watch page
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// transcriptXML is the timed-text document behind a caption track
type transcriptXML struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Content string `xml:",chardata"`
	} `xml:"text"`
}

// YouTubeTranscriptToolResult represents the result of a transcript fetch
type YouTubeTranscriptToolResult struct {
	url        string
	videoID    string
	language   string
	transcript string
	truncated  bool
	err        string
}

// GetResult returns the transcript text
func (r *YouTubeTranscriptToolResult) GetResult() string {
	if r.truncated {
		return r.transcript + "\n...[truncated]"
	}
	return r.transcript
}

// GetError returns the error message
func (r *YouTubeTranscriptToolResult) GetError() string {
	return r.err
}

// IsError returns true if the result contains an error
func (r *YouTubeTranscriptToolResult) IsError() bool {
	return r.err != ""
}

// AssistantFacing returns the string representation for the AI assistant
func (r *YouTubeTranscriptToolResult) AssistantFacing() string {
	result := ""
	if !r.IsError() {
		result = r.GetResult()
	}
	return tooltypes.StringifyToolResult(result, r.err)
}

// StructuredData returns structured metadata about the fetch
func (r *YouTubeTranscriptToolResult) StructuredData() tooltypes.StructuredToolResult {
	result := tooltypes.StructuredToolResult{
		ToolName:  "youtube_transcript",
		Success:   !r.IsError(),
		Timestamp: time.Now(),
	}

	if r.IsError() {
		result.Error = r.GetError()
		return result
	}

	result.Metadata = &tooltypes.YouTubeTranscriptMetadata{
		URL:       r.url,
		VideoID:   r.videoID,
		Language:  r.language,
		CharCount: len(r.transcript),
		Truncated: r.truncated,
	}
	return result
}

// YouTubeTranscriptTool fetches the caption transcript of a video
type YouTubeTranscriptTool struct {
	client    *http.Client
	watchBase string
}

// YouTubeTranscriptInput defines the input parameters for the transcript tool
type YouTubeTranscriptInput struct {
	URL string `json:"url" jsonschema:"description=The YouTube video URL (watch or youtu.be form)"`
}

// Name returns the name of the tool
func (t *YouTubeTranscriptTool) Name() string {
	return "youtube_transcript"
}

// GenerateSchema generates the JSON schema for the tool's input parameters
func (t *YouTubeTranscriptTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[YouTubeTranscriptInput]()
}

// Description returns the description of the transcript tool
func (t *YouTubeTranscriptTool) Description() string {
	return `Fetch the transcript of a YouTube video. Accepts watch URLs (youtube.com/watch?v=...) and short URLs (youtu.be/...).

Use this when a question refers to the content of a video. Long transcripts are truncated at 20000 characters.
`
}

// TracingKVs returns tracing key-value pairs for observability
func (t *YouTubeTranscriptTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input := &YouTubeTranscriptInput{}
	err := json.Unmarshal([]byte(parameters), input)
	if err != nil {
		return nil, err
	}

	return []attribute.KeyValue{
		attribute.String("url", input.URL),
	}, nil
}

// ValidateInput validates the input parameters for the tool
func (t *YouTubeTranscriptTool) ValidateInput(_ tooltypes.State, parameters string) error {
	var input YouTubeTranscriptInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if input.URL == "" {
		return errors.New("url is required")
	}
	if !videoIDPattern.MatchString(input.URL) {
		return errors.New("could not parse YouTube video ID from URL")
	}

	return nil
}

// ExtractVideoID pulls the 11-character video ID out of a YouTube URL
func ExtractVideoID(url string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Execute fetches the watch page, resolves a caption track and downloads it
func (t *YouTubeTranscriptTool) Execute(ctx context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	input := &YouTubeTranscriptInput{}
	if err := json.Unmarshal([]byte(parameters), input); err != nil {
		return &YouTubeTranscriptToolResult{err: err.Error()}
	}

	videoID, ok := ExtractVideoID(input.URL)
	if !ok {
		return &YouTubeTranscriptToolResult{url: input.URL, err: "could not parse YouTube video ID from URL"}
	}

	client := t.client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	watchBase := t.watchBase
	if watchBase == "" {
		watchBase = youtubeWatchBase
	}

	page, err := fetchBody(ctx, client, watchBase+videoID)
	if err != nil {
		return &YouTubeTranscriptToolResult{url: input.URL, videoID: videoID, err: errors.Wrap(err, "failed to fetch video page").Error()}
	}

	track, err := pickCaptionTrack(page)
	if err != nil {
		return &YouTubeTranscriptToolResult{url: input.URL, videoID: videoID, err: err.Error()}
	}

	timedText, err := fetchBody(ctx, client, track.BaseURL)
	if err != nil {
		return &YouTubeTranscriptToolResult{url: input.URL, videoID: videoID, err: errors.Wrap(err, "failed to fetch transcript").Error()}
	}

	var doc transcriptXML
	if err := xml.Unmarshal([]byte(timedText), &doc); err != nil {
		return &YouTubeTranscriptToolResult{url: input.URL, videoID: videoID, err: errors.Wrap(err, "failed to parse transcript").Error()}
	}

	lines := make([]string, 0, len(doc.Texts))
	for _, text := range doc.Texts {
		// Caption payloads are frequently double-escaped
		line := strings.TrimSpace(html.UnescapeString(text.Content))
		if line != "" {
			lines = append(lines, line)
		}
	}
	transcript := strings.Join(lines, "\n")
	if transcript == "" {
		return &YouTubeTranscriptToolResult{url: input.URL, videoID: videoID, err: "transcript is empty"}
	}

	truncated := false
	if len(transcript) > transcriptMaxChars {
		transcript = transcript[:transcriptMaxChars]
		truncated = true
	}

	return &YouTubeTranscriptToolResult{
		url:        input.URL,
		videoID:    videoID,
		language:   track.LanguageCode,
		transcript: transcript,
		truncated:  truncated,
	}
}

// pickCaptionTrack prefers manually authored English captions, then any
// English track, then the first track advertised
func pickCaptionTrack(page string) (*captionTrack, error) {
	m := captionTracksPattern.FindStringSubmatch(page)
	if m == nil {
		return nil, errors.New("no transcript available for this video")
	}

	var tracks []captionTrack
	if err := json.Unmarshal([]byte(m[1]), &tracks); err != nil {
		return nil, errors.Wrap(err, "failed to parse caption track list")
	}
	if len(tracks) == 0 {
		return nil, errors.New("no transcript available for this video")
	}

	var english *captionTrack
	for i := range tracks {
		track := &tracks[i]
		if !strings.HasPrefix(track.LanguageCode, "en") {
			continue
		}
		if track.Kind != "asr" {
			return track, nil
		}
		if english == nil {
			english = track
		}
	}
	if english != nil {
		return english, nil
	}
	return &tracks[0], nil
}

func fetchBody(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "en-US,en")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
