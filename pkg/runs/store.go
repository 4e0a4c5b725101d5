// Package runs persists evaluation run history: one row per run plus the
// per-task answers, backed by the shared SQLite database.
package runs

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/abonvalle/hf-agent-course/pkg/db"
)

// Run is a single evaluation run
type Run struct {
	ID             string    `db:"id" json:"id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	Username       string    `db:"username" json:"username"`
	AgentCode      string    `db:"agent_code" json:"agent_code"`
	Submitted      bool      `db:"submitted" json:"submitted"`
	Score          *float64  `db:"score" json:"score,omitempty"`
	CorrectCount   int       `db:"correct_count" json:"correct_count"`
	TotalAttempted int       `db:"total_attempted" json:"total_attempted"`
	Message        string    `db:"message" json:"message"`
}

// Answer is one answered task within a run
type Answer struct {
	ID       int64  `db:"id" json:"-"`
	RunID    string `db:"run_id" json:"-"`
	TaskID   string `db:"task_id" json:"task_id"`
	Question string `db:"question" json:"question"`
	FilePath string `db:"file_path" json:"file_path,omitempty"`
	Answer   string `db:"answer" json:"answer"`
	Error    string `db:"error" json:"error,omitempty"`
}

// NewRunID generates an identifier for a new run
func NewRunID() string {
	return uuid.New().String()
}

var migrations = []db.Migration{
	{
		Version:     20250601120000,
		Description: "create runs and answers tables",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					username TEXT NOT NULL,
					agent_code TEXT NOT NULL,
					submitted BOOLEAN NOT NULL DEFAULT 0,
					score REAL,
					correct_count INTEGER NOT NULL DEFAULT 0,
					total_attempted INTEGER NOT NULL DEFAULT 0,
					message TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE IF NOT EXISTS answers (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
					task_id TEXT NOT NULL,
					question TEXT NOT NULL,
					file_path TEXT NOT NULL DEFAULT '',
					answer TEXT NOT NULL DEFAULT '',
					error TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX IF NOT EXISTS idx_answers_run_id ON answers(run_id)`,
				`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)`,
			}
			for _, statement := range statements {
				if _, err := tx.Exec(statement); err != nil {
					return err
				}
			}
			return nil
		},
	},
}

// Store provides access to persisted runs
type Store struct {
	conn *sqlx.DB
}

// NewStore opens the run database at dbPath and applies migrations
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	conn, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(ctx, conn, migrations); err != nil {
		conn.Close()
		return nil, err
	}

	return &Store{conn: conn}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.conn.Close()
}

// SaveRun inserts a run and its answers in one transaction
func (s *Store) SaveRun(ctx context.Context, run Run, answers []Answer) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO runs (id, created_at, username, agent_code, submitted, score, correct_count, total_attempted, message)
		VALUES (:id, :created_at, :username, :agent_code, :submitted, :score, :correct_count, :total_attempted, :message)
	`, run)
	if err != nil {
		return errors.Wrap(err, "failed to insert run")
	}

	for _, answer := range answers {
		answer.RunID = run.ID
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO answers (run_id, task_id, question, file_path, answer, error)
			VALUES (:run_id, :task_id, :question, :file_path, :answer, :error)
		`, answer)
		if err != nil {
			return errors.Wrapf(err, "failed to insert answer for task %s", answer.TaskID)
		}
	}

	return tx.Commit()
}

// ListRuns returns all runs, most recent first
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	var result []Run
	err := s.conn.SelectContext(ctx, &result, "SELECT * FROM runs ORDER BY created_at DESC")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	return result, nil
}

// GetRun returns a run and its answers
func (s *Store) GetRun(ctx context.Context, id string) (*Run, []Answer, error) {
	var run Run
	err := s.conn.GetContext(ctx, &run, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, errors.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get run")
	}

	var answers []Answer
	err = s.conn.SelectContext(ctx, &answers, "SELECT * FROM answers WHERE run_id = ? ORDER BY id", id)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get answers")
	}

	return &run, answers, nil
}

// DeleteRun removes a run and its answers
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "failed to delete run")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check deleted rows")
	}
	if affected == 0 {
		return errors.Errorf("run %s not found", id)
	}
	return nil
}
