package tools

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/abonvalle/hf-agent-course/pkg/logger"
	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
	"github.com/abonvalle/hf-agent-course/pkg/utils"
)

// webFetchMaxChars caps the page content returned to the model
const webFetchMaxChars = 20000

// WebFetchToolResult represents the result of fetching content from a web URL
type WebFetchToolResult struct {
	url           string
	contentType   string
	processedType string
	result        string
	err           string
}

// GetResult returns the fetched content
func (r *WebFetchToolResult) GetResult() string {
	return r.result
}

// GetError returns the error message
func (r *WebFetchToolResult) GetError() string {
	return r.err
}

// IsError returns true if the result contains an error
func (r *WebFetchToolResult) IsError() bool {
	return r.err != ""
}

// AssistantFacing returns the string representation for the AI assistant
func (r *WebFetchToolResult) AssistantFacing() string {
	result := ""
	if !r.IsError() {
		result = r.result
	}
	return tooltypes.StringifyToolResult(result, r.err)
}

// StructuredData returns structured metadata about the fetch
func (r *WebFetchToolResult) StructuredData() tooltypes.StructuredToolResult {
	result := tooltypes.StructuredToolResult{
		ToolName:  "web_fetch",
		Success:   !r.IsError(),
		Timestamp: time.Now(),
	}

	if r.IsError() {
		result.Error = r.GetError()
		return result
	}

	result.Metadata = &tooltypes.WebFetchMetadata{
		URL:           r.url,
		ContentType:   r.contentType,
		Size:          int64(len(r.result)),
		ProcessedType: r.processedType,
	}
	return result
}

// WebFetchTool fetches a page and converts it to markdown
type WebFetchTool struct{}

// WebFetchInput defines the input parameters for the web fetch tool
type WebFetchInput struct {
	URL string `json:"url" jsonschema:"description=The URL to fetch,format=uri"`
}

// Name returns the name of the tool
func (t *WebFetchTool) Name() string {
	return "web_fetch"
}

// GenerateSchema generates the JSON schema for the tool's input parameters
func (t *WebFetchTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[WebFetchInput]()
}

// Description returns the description of the web fetch tool
func (t *WebFetchTool) Description() string {
	return `Fetch a web page and return its content as markdown. Plain text and JSON responses are returned as-is.

Use this to read a specific page found via web_search or named in a question. HTTPS is required except for localhost.
`
}

// TracingKVs returns tracing key-value pairs for observability
func (t *WebFetchTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input := &WebFetchInput{}
	err := json.Unmarshal([]byte(parameters), input)
	if err != nil {
		return nil, err
	}

	return []attribute.KeyValue{
		attribute.String("url", input.URL),
	}, nil
}

// ValidateInput validates the input parameters for the tool
func (t *WebFetchTool) ValidateInput(_ tooltypes.State, parameters string) error {
	var input WebFetchInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if input.URL == "" {
		return errors.New("url is required")
	}

	parsedURL, err := url.Parse(input.URL)
	if err != nil {
		return errors.Wrap(err, "invalid URL")
	}
	if parsedURL.Scheme != "https" && (parsedURL.Scheme != "http" || !isLocalHost(parsedURL.Hostname())) {
		return errors.New("only HTTPS scheme is supported for external domains, HTTP is allowed for localhost/internal addresses")
	}

	return nil
}

// Execute fetches the URL and converts the response for the model
func (t *WebFetchTool) Execute(ctx context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	input := &WebFetchInput{}
	if err := json.Unmarshal([]byte(parameters), input); err != nil {
		return &WebFetchToolResult{err: err.Error()}
	}

	content, contentType, err := fetchWithSameDomainRedirects(ctx, input.URL)
	if err != nil {
		return &WebFetchToolResult{url: input.URL, err: err.Error()}
	}

	result := &WebFetchToolResult{
		url:         input.URL,
		contentType: contentType,
	}

	if strings.Contains(contentType, "text/html") {
		result.result, _ = utils.TruncateContent(convertHTMLToMarkdown(ctx, content), webFetchMaxChars)
		result.processedType = "markdown"
	} else {
		result.result, _ = utils.TruncateContent(content, webFetchMaxChars)
		result.processedType = "text"
	}

	return result
}

func isLocalHost(hostname string) bool {
	if hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") {
		return true
	}
	ip := net.ParseIP(hostname)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}

func fetchWithSameDomainRedirects(ctx context.Context, urlStr string) (string, string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", "", errors.Wrap(err, "invalid URL")
	}

	if parsedURL.Scheme != "https" && (parsedURL.Scheme != "http" || !isLocalHost(parsedURL.Hostname())) {
		return "", "", errors.New("only HTTPS scheme is supported for external domains, HTTP is allowed for localhost/internal addresses")
	}

	originalDomain := parsedURL.Hostname()

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.URL.Hostname() != originalDomain {
				return errors.Errorf("redirect to different domain not allowed: %s -> %s",
					originalDomain, req.URL.Hostname())
			}
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", errors.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/octet-stream") ||
		strings.Contains(contentType, "application/zip") ||
		strings.Contains(contentType, "application/pdf") ||
		strings.Contains(contentType, "image/") ||
		strings.Contains(contentType, "audio/") ||
		strings.Contains(contentType, "video/") {
		return "", "", errors.Errorf("unsupported content type: %s", contentType)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}

	return string(body), contentType, nil
}

// convertHTMLToMarkdown strips non-content markup and converts the page
// body to markdown. Falls back to the raw HTML when conversion fails.
func convertHTMLToMarkdown(ctx context.Context, htmlContent string) string {
	cleaned := htmlContent
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent)); err == nil {
		doc.Find("script, style, noscript, iframe, svg").Remove()
		if body, err := doc.Find("body").Html(); err == nil && strings.TrimSpace(body) != "" {
			cleaned = body
		}
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(cleaned)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("Failed to convert HTML to Markdown, returning raw HTML")
		return htmlContent
	}
	return markdown
}
