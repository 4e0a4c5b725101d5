package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		videoID string
		ok      bool
	}{
		{name: "watch url", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", videoID: "dQw4w9WgXcQ", ok: true},
		{name: "short url", url: "https://youtu.be/dQw4w9WgXcQ", videoID: "dQw4w9WgXcQ", ok: true},
		{name: "watch url with extra params", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", videoID: "dQw4w9WgXcQ", ok: true},
		{name: "not a video url", url: "https://www.youtube.com/", ok: false},
		{name: "id too short", url: "https://youtu.be/short", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			videoID, ok := ExtractVideoID(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.videoID, videoID)
		})
	}
}

func TestYouTubeTranscriptExecute(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/timedtext") {
			fmt.Fprint(w, `<?xml version="1.0"?><transcript>`+
				`<text start="0" dur="2">Never gonna give you up</text>`+
				`<text start="2" dur="2">Never gonna let you &amp;#39;down&amp;#39;</text>`+
				`<text start="4" dur="2">  </text>`+
				`</transcript>`)
			return
		}
		fmt.Fprintf(w, `<html>"captionTracks":[{"baseUrl":"%s/timedtext?lang=en","languageCode":"en","kind":""}]</html>`, server.URL)
	}))
	defer server.Close()

	tool := &YouTubeTranscriptTool{watchBase: server.URL + "/watch?v="}
	result := tool.Execute(context.TODO(), nil, `{"url":"https://youtu.be/dQw4w9WgXcQ"}`)
	require.False(t, result.IsError(), result.GetError())

	assert.Equal(t, "Never gonna give you up\nNever gonna let you 'down'", result.GetResult())

	var meta tooltypes.YouTubeTranscriptMetadata
	require.True(t, tooltypes.ExtractMetadata(result.StructuredData().Metadata, &meta))
	assert.Equal(t, "dQw4w9WgXcQ", meta.VideoID)
	assert.Equal(t, "en", meta.Language)
	assert.False(t, meta.Truncated)
}

func TestYouTubeTranscriptTruncation(t *testing.T) {
	longLine := strings.Repeat("a", 30000)
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/timedtext") {
			fmt.Fprintf(w, `<transcript><text start="0" dur="2">%s</text></transcript>`, longLine)
			return
		}
		fmt.Fprintf(w, `"captionTracks":[{"baseUrl":"%s/timedtext","languageCode":"en"}]`, server.URL)
	}))
	defer server.Close()

	tool := &YouTubeTranscriptTool{watchBase: server.URL + "/watch?v="}
	result := tool.Execute(context.TODO(), nil, `{"url":"https://youtu.be/dQw4w9WgXcQ"}`)
	require.False(t, result.IsError(), result.GetError())

	assert.True(t, strings.HasSuffix(result.GetResult(), "\n...[truncated]"))

	var meta tooltypes.YouTubeTranscriptMetadata
	require.True(t, tooltypes.ExtractMetadata(result.StructuredData().Metadata, &meta))
	assert.Equal(t, transcriptMaxChars, meta.CharCount)
	assert.True(t, meta.Truncated)
}

func TestYouTubeTranscriptNoCaptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html>no captions here</html>`)
	}))
	defer server.Close()

	tool := &YouTubeTranscriptTool{watchBase: server.URL + "/watch?v="}
	result := tool.Execute(context.TODO(), nil, `{"url":"https://youtu.be/dQw4w9WgXcQ"}`)

	require.True(t, result.IsError())
	assert.Contains(t, result.GetError(), "no transcript available")
}

func TestYouTubeTranscriptValidateInput(t *testing.T) {
	tool := &YouTubeTranscriptTool{}

	assert.Error(t, tool.ValidateInput(nil, `{"url":""}`))
	assert.Error(t, tool.ValidateInput(nil, `{"url":"https://example.com/video"}`))
	assert.NoError(t, tool.ValidateInput(nil, `{"url":"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`))
}

func TestPickCaptionTrackPrefersManualEnglish(t *testing.T) {
	page := `"captionTracks":[` +
		`{"baseUrl":"http://x/fr","languageCode":"fr","kind":""},` +
		`{"baseUrl":"http://x/en-asr","languageCode":"en","kind":"asr"},` +
		`{"baseUrl":"http://x/en","languageCode":"en","kind":""}]`

	track, err := pickCaptionTrack(page)
	require.NoError(t, err)
	assert.Equal(t, "http://x/en", track.BaseURL)
}

func TestPickCaptionTrackFallsBackToASR(t *testing.T) {
	page := `"captionTracks":[` +
		`{"baseUrl":"http://x/fr","languageCode":"fr","kind":""},` +
		`{"baseUrl":"http://x/en-asr","languageCode":"en","kind":"asr"}]`

	track, err := pickCaptionTrack(page)
	require.NoError(t, err)
	assert.Equal(t, "http://x/en-asr", track.BaseURL)
}
