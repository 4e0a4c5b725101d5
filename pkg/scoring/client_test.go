package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchQuestions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/questions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"task_id": "task-1", "question": "How many albums?", "Level": "1"},
			"not an object",
			{"task_id": "task-2", "question": "What is the capital?", "file_name": "data.xlsx"}
		]`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	questions, err := client.FetchQuestions(context.Background())
	require.NoError(t, err)

	require.Len(t, questions, 2)
	assert.Equal(t, "task-1", questions[0].TaskID)
	assert.Equal(t, "How many albums?", questions[0].Question)
	assert.Equal(t, "task-2", questions[1].TaskID)
	assert.Equal(t, "data.xlsx", questions[1].FileName)
}

func TestFetchQuestionsNonListPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"detail": "not a list"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchQuestions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a list")
}

func TestFetchQuestionsRetriesServerErrors(t *testing.T) {
	var requestCount atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestCount.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[{"task_id": "task-1", "question": "q"}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	questions, err := client.FetchQuestions(context.Background())
	require.NoError(t, err)
	assert.Len(t, questions, 1)
	assert.Equal(t, int64(2), requestCount.Load())
}

func TestDownloadFileFromURLSuffix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/files/task-1" {
			http.Redirect(w, r, "/storage/task-1.xlsx", http.StatusFound)
			return
		}
		assert.Equal(t, "/storage/task-1.xlsx", r.URL.Path)
		w.Write([]byte("spreadsheet-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	client := NewClient(server.URL)
	path, err := client.DownloadFile(context.Background(), "task-1", dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "task-1.xlsx"), path)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "spreadsheet-bytes", string(content))
}

func TestDownloadFileExtensionFromContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	client := NewClient(server.URL)
	path, err := client.DownloadFile(context.Background(), "task-2", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "task-2.mp3"), path)
}

func TestDownloadFileNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	path, err := client.DownloadFile(context.Background(), "task-3", t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestDownloadFileEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	path, err := client.DownloadFile(context.Background(), "task-4", t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/submit", r.URL.Path)

		var submission Submission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&submission))
		assert.Equal(t, "testuser", submission.Username)
		assert.Equal(t, "https://huggingface.co/spaces/testuser/agent/tree/main", submission.AgentCode)
		require.Len(t, submission.Answers, 1)
		assert.Equal(t, "task-1", submission.Answers[0].TaskID)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"username": "testuser", "score": 65.0, "correct_count": 13, "total_attempted": 20, "message": "Scored!"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.Submit(context.Background(), Submission{
		Username:  "testuser",
		AgentCode: "https://huggingface.co/spaces/testuser/agent/tree/main",
		Answers:   []AnswerItem{{TaskID: "task-1", SubmittedAnswer: "42"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "testuser", result.Username)
	assert.Equal(t, 65.0, result.Score)
	assert.Equal(t, 13, result.CorrectCount)
	assert.Equal(t, 20, result.TotalAttempted)
	assert.Equal(t, "Scored!", result.Message)
}

func TestSubmitErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"detail": "username is required"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Submit(context.Background(), Submission{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
	assert.Contains(t, err.Error(), "username is required")
}

func TestSubmitErrorPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Submit(context.Background(), Submission{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestWithHFTokenSetsBearerAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf_secret", r.Header.Get("Authorization"))
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithHFToken("hf_secret"))
	_, err := client.FetchQuestions(context.Background())
	require.NoError(t, err)
}

func TestErrorDetail(t *testing.T) {
	assert.Equal(t, "boom", errorDetail([]byte(`{"detail": "boom"}`)))
	assert.Equal(t, "plain text", errorDetail([]byte("plain text")))
	assert.Equal(t, "no error detail", errorDetail(nil))

	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, errorDetail(long), 500)
}
