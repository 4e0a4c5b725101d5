// Package runner orchestrates a full evaluation run: fetch the question set,
// answer each task with the agent, submit the answers and persist the run.
package runner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/abonvalle/hf-agent-course/pkg/config"
	"github.com/abonvalle/hf-agent-course/pkg/llm"
	"github.com/abonvalle/hf-agent-course/pkg/logger"
	"github.com/abonvalle/hf-agent-course/pkg/runs"
	"github.com/abonvalle/hf-agent-course/pkg/scoring"
	"github.com/abonvalle/hf-agent-course/pkg/tools"
	llmtypes "github.com/abonvalle/hf-agent-course/pkg/types/llm"
)

// Options controls a single evaluation run
type Options struct {
	Concurrency int    // number of tasks answered in parallel, default 1
	Only        string // glob filter on task ids, empty matches everything
	NoSubmit    bool   // answer but do not submit
	NoSave      bool   // do not persist the run
}

// TaskResult is the outcome for one task
type TaskResult struct {
	TaskID   string
	Question string
	FilePath string
	Answer   string
	Err      error
}

// SubmittedAnswer is the answer as it appears in the results log
func (r TaskResult) SubmittedAnswer() string {
	if r.Err != nil {
		return fmt.Sprintf("AGENT ERROR: %s", r.Err)
	}
	return r.Answer
}

// Report summarizes a completed run
type Report struct {
	RunID   string
	Results []TaskResult
	Submit  *scoring.SubmitResult
	Status  string
	Errors  error
}

// Runner executes evaluation runs
type Runner struct {
	appConfig config.AppConfig
	llmConfig llmtypes.Config
	client    *scoring.Client
	store     *runs.Store
	opts      Options
}

// New creates a Runner. The store may be nil, in which case runs are not
// persisted.
func New(appConfig config.AppConfig, llmConfig llmtypes.Config, client *scoring.Client, store *runs.Store, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Runner{
		appConfig: appConfig,
		llmConfig: llmConfig,
		client:    client,
		store:     store,
		opts:      opts,
	}
}

// Run fetches questions, answers them and submits the answers
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	questions, err := r.client.FetchQuestions(ctx)
	if err != nil {
		return nil, err
	}

	questions, err = filterQuestions(ctx, questions, r.opts.Only)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, errors.New("no questions to answer")
	}

	downloadDir, err := os.MkdirTemp("", "hfagent-downloads-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create download directory")
	}

	mcpManager, err := tools.CreateMCPManagerFromViper(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create MCP manager")
	}
	defer mcpManager.Close(ctx)

	logger.G(ctx).
		WithField("questions", len(questions)).
		WithField("concurrency", r.opts.Concurrency).
		Info("starting evaluation run")

	results := make([]TaskResult, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, q := range questions {
		g.Go(func() error {
			results[i] = r.answerQuestion(gctx, q, downloadDir, mcpManager)
			return nil
		})
	}
	g.Wait()

	var runErrs *multierror.Error
	var answers []scoring.AnswerItem
	for _, res := range results {
		if res.Err != nil {
			runErrs = multierror.Append(runErrs, errors.Wrapf(res.Err, "task %s", res.TaskID))
			continue
		}
		answers = append(answers, scoring.AnswerItem{TaskID: res.TaskID, SubmittedAnswer: res.Answer})
	}

	report := &Report{
		RunID:   runs.NewRunID(),
		Results: results,
		Errors:  runErrs.ErrorOrNil(),
	}

	switch {
	case len(answers) == 0:
		report.Status = "Agent did not produce any answers to submit."
	case r.opts.NoSubmit:
		report.Status = fmt.Sprintf("Submission skipped, %d answers ready.", len(answers))
	default:
		submission := scoring.Submission{
			Username:  strings.TrimSpace(r.appConfig.Username),
			AgentCode: r.appConfig.AgentCodeURL(),
			Answers:   answers,
		}
		result, err := r.client.Submit(ctx, submission)
		if err != nil {
			report.Status = fmt.Sprintf("Submission Failed: %s", err)
			report.Errors = multierror.Append(runErrs, err).ErrorOrNil()
		} else {
			report.Submit = result
			report.Status = fmt.Sprintf(
				"Submission Successful!\nUser: %s\nOverall Score: %.1f%% (%d/%d correct)\nMessage: %s",
				result.Username, result.Score, result.CorrectCount, result.TotalAttempted, result.Message,
			)
		}
	}

	if !r.opts.NoSave && r.store != nil {
		if err := r.saveRun(ctx, report); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to save run history")
		}
	}

	return report, nil
}

func (r *Runner) answerQuestion(ctx context.Context, q scoring.Question, downloadDir string, mcpManager *tools.MCPManager) TaskResult {
	result := TaskResult{TaskID: q.TaskID, Question: q.Question}
	log := logger.G(ctx).WithField("task_id", q.TaskID)

	filePath, err := r.client.DownloadFile(ctx, q.TaskID, downloadDir)
	if err != nil {
		// A failed download is not fatal, the agent just works without the file.
		log.WithError(err).Warn("failed to download task file, continuing without it")
		filePath = ""
	}
	result.FilePath = filePath

	thread, err := llm.NewThread(r.llmConfig)
	if err != nil {
		result.Err = err
		return result
	}

	state := tools.NewBasicState(ctx, tools.WithWorkDir(downloadDir), tools.WithMCPTools(mcpManager))
	if filePath != "" {
		state.SetTaskFile(filePath)
	}
	thread.SetState(state)

	if filePath != "" {
		thread.AddUserMessage(fmt.Sprintf(
			"A file is available at local path: %s. You can inspect it by calling the 'file_inspect' tool with args {'path': '%s', ...}.",
			filePath, filePath,
		))
	}

	handler := &llmtypes.StringCollectorHandler{Silent: true}
	reply, err := thread.SendMessage(ctx, q.Question, handler, llmtypes.MessageOpt{})
	if err != nil {
		log.WithError(err).Error("agent failed to answer task")
		result.Err = err
		return result
	}

	result.Answer = ExtractFinalAnswer(reply)
	log.WithField("answer", result.Answer).Info("task answered")
	return result
}

func filterQuestions(ctx context.Context, questions []scoring.Question, pattern string) ([]scoring.Question, error) {
	var matcher glob.Glob
	if pattern != "" {
		var err error
		matcher, err = glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid task filter %q", pattern)
		}
	}

	filtered := make([]scoring.Question, 0, len(questions))
	for _, q := range questions {
		if q.TaskID == "" || q.Question == "" {
			logger.G(ctx).Warn("skipping question with missing task_id or question text")
			continue
		}
		if matcher != nil && !matcher.Match(q.TaskID) {
			continue
		}
		filtered = append(filtered, q)
	}
	return filtered, nil
}

func (r *Runner) saveRun(ctx context.Context, report *Report) error {
	run := runs.Run{
		ID:        report.RunID,
		CreatedAt: time.Now().UTC(),
		Username:  r.appConfig.Username,
		AgentCode: r.appConfig.AgentCodeURL(),
		Message:   report.Status,
	}
	if report.Submit != nil {
		score := report.Submit.Score
		run.Submitted = true
		run.Score = &score
		run.CorrectCount = report.Submit.CorrectCount
		run.TotalAttempted = report.Submit.TotalAttempted
	}

	answers := make([]runs.Answer, 0, len(report.Results))
	for _, res := range report.Results {
		answer := runs.Answer{
			TaskID:   res.TaskID,
			Question: res.Question,
			FilePath: res.FilePath,
			Answer:   res.Answer,
		}
		if res.Err != nil {
			answer.Answer = ""
			answer.Error = res.SubmittedAnswer()
		}
		answers = append(answers, answer)
	}

	return r.store.SaveRun(ctx, run, answers)
}
