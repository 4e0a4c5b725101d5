// Package scoring is the client for the course evaluation API: it fetches
// the question set, downloads per-task attachments and submits answers.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/abonvalle/hf-agent-course/pkg/logger"
)

const (
	questionsTimeout = 15 * time.Second
	filesTimeout     = 15 * time.Second
	submitTimeout    = 60 * time.Second

	retryAttempts = 3
	retryDelay    = 1 * time.Second

	// errorDetailLimit caps how much of a non-JSON error body is surfaced.
	errorDetailLimit = 500
)

// knownExtensions are the attachment suffixes recognized from the file URL.
var knownExtensions = []string{
	".xlsx", ".xls", ".py", ".mp3", ".wav", ".png", ".jpg", ".jpeg", ".csv", ".txt",
}

// contentTypeExtensions maps attachment content types to file extensions for
// responses whose URL carries no recognizable suffix.
var contentTypeExtensions = map[string]string{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
	"application/vnd.ms-excel": ".xls",
	"text/x-python":            ".py",
	"audio/mpeg":               ".mp3",
	"audio/x-wav":              ".wav",
	"audio/wav":                ".wav",
	"image/png":                ".png",
	"image/jpeg":               ".jpg",
	"text/csv":                 ".csv",
	"text/plain":               ".txt",
}

// Question is a single task from the evaluation API
type Question struct {
	TaskID   string `json:"task_id"`
	Question string `json:"question"`
	Level    string `json:"Level,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

// AnswerItem is one submitted answer
type AnswerItem struct {
	TaskID          string `json:"task_id"`
	SubmittedAnswer string `json:"submitted_answer"`
}

// Submission is the payload for the submit endpoint
type Submission struct {
	Username  string       `json:"username"`
	AgentCode string       `json:"agent_code"`
	Answers   []AnswerItem `json:"answers"`
}

// SubmitResult is the scoring response for a submission
type SubmitResult struct {
	Username       string  `json:"username"`
	Score          float64 `json:"score"`
	CorrectCount   int     `json:"correct_count"`
	TotalAttempted int     `json:"total_attempted"`
	Message        string  `json:"message"`
}

// Client talks to the evaluation API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHFToken authenticates requests with a bearer token
func WithHFToken(token string) Option {
	return func(c *Client) {
		source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		c.httpClient = oauth2.NewClient(context.Background(), source)
	}
}

// NewClient creates an evaluation API client for the given base URL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchQuestions retrieves the full question set
func (c *Client) FetchQuestions(ctx context.Context) ([]Question, error) {
	ctx, cancel := context.WithTimeout(ctx, questionsTimeout)
	defer cancel()

	body, status, _, err := c.getWithRetry(ctx, c.baseURL+"/questions")
	if err != nil {
		return nil, errors.Wrap(err, "fetching questions")
	}
	if status != http.StatusOK {
		return nil, errors.Errorf("fetching questions: unexpected status %d", status)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, errors.Wrap(err, "questions payload is not a list")
	}

	questions := make([]Question, 0, len(items))
	for i, item := range items {
		var q Question
		if err := json.Unmarshal(item, &q); err != nil {
			logger.G(ctx).WithField("index", i).Warn("skipping non-object question entry")
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// DownloadFile fetches the attachment for a task into destDir and returns the
// saved path. It returns an empty path without error when the task has no
// attachment.
func (c *Client) DownloadFile(ctx context.Context, taskID, destDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, filesTimeout)
	defer cancel()

	body, status, resp, err := c.getWithRetry(ctx, c.baseURL+"/files/"+taskID)
	if err != nil {
		return "", errors.Wrapf(err, "downloading file for task %s", taskID)
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	if status != http.StatusOK {
		return "", errors.Errorf("downloading file for task %s: unexpected status %d", taskID, status)
	}
	if len(body) == 0 {
		return "", nil
	}

	ext := extensionFor(resp)
	path := filepath.Join(destDir, taskID+ext)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", errors.Wrapf(err, "saving file for task %s", taskID)
	}
	return path, nil
}

// Submit posts the answers and returns the scoring result
func (c *Client) Submit(ctx context.Context, submission Submission) (*SubmitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	payload, err := json.Marshal(submission)
	if err != nil {
		return nil, errors.Wrap(err, "encoding submission")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submit", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "building submit request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "submitting answers")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading submit response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("submission failed with status %d: %s", resp.StatusCode, errorDetail(body))
	}

	var result SubmitResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(err, "decoding submit response")
	}
	return &result, nil
}

// getWithRetry performs a GET, retrying transport failures and 5xx responses.
// It returns the body, status code and final response for header inspection.
func (c *Client) getWithRetry(ctx context.Context, url string) ([]byte, int, *http.Response, error) {
	var body []byte
	var status int
	var lastResp *http.Response

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}

			if resp.StatusCode >= 500 {
				return errors.Errorf("server error %d", resp.StatusCode)
			}

			body = data
			status = resp.StatusCode
			lastResp = resp
			return nil
		},
		retry.Attempts(retryAttempts),
		retry.Delay(retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).
				WithError(err).
				WithField("attempt", n+1).
				WithField("url", url).
				Warn("retrying evaluation API request")
		}),
	)

	return body, status, lastResp, err
}

// extensionFor picks a file extension from the response URL, falling back to
// the Content-Type header.
func extensionFor(resp *http.Response) string {
	urlPath := strings.ToLower(resp.Request.URL.Path)
	for _, ext := range knownExtensions {
		if strings.HasSuffix(urlPath, ext) {
			return ext
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return contentTypeExtensions[mediaType]
}

// errorDetail extracts the `detail` field from a JSON error body, falling
// back to a truncated copy of the raw text.
func errorDetail(body []byte) string {
	var parsed struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != nil {
		return fmt.Sprintf("%v", parsed.Detail)
	}

	text := strings.TrimSpace(string(body))
	if len(text) > errorDetailLimit {
		text = text[:errorDetailLimit]
	}
	if text == "" {
		return "no error detail"
	}
	return text
}
