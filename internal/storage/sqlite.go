// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/chushaku/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		source_path TEXT NOT NULL,
		output_path TEXT,
		phrase TEXT NOT NULL,
		case_sensitive INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		matches INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_document_id ON jobs(document_id);

	CREATE TABLE IF NOT EXISTS annotations (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		comment_id INTEGER NOT NULL,
		paragraph INTEGER NOT NULL,
		byte_offset INTEGER NOT NULL,
		byte_length INTEGER NOT NULL,
		text TEXT NOT NULL,
		context TEXT,
		author TEXT,
		body TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_annotations_job_id ON annotations(job_id);
	CREATE INDEX IF NOT EXISTS idx_annotations_job_comment ON annotations(job_id, comment_id);
	`
	_, err := db.Exec(schema)
	return err
}

const jobColumns = `id, document_id, source_path, output_path, phrase, case_sensitive, status, matches, error, created_at`

const annotationColumns = `id, job_id, comment_id, paragraph, byte_offset, byte_length, text, context, author, body, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*models.Job, error) {
	var job models.Job
	var output, errText sql.NullString
	var status string
	if err := row.Scan(&job.ID, &job.DocumentID, &job.SourcePath, &output, &job.Phrase,
		&job.CaseSensitive, &status, &job.Matches, &errText, &job.CreatedAt); err != nil {
		return nil, err
	}
	job.OutputPath = output.String
	job.Error = errText.String
	job.Status = models.JobStatus(status)
	return &job, nil
}

func scanAnnotation(row scanner) (*models.Annotation, error) {
	var a models.Annotation
	var contextText, author, body sql.NullString
	if err := row.Scan(&a.ID, &a.JobID, &a.CommentID, &a.Paragraph, &a.Offset, &a.Length,
		&a.Text, &contextText, &author, &body, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Context = contextText.String
	a.Author = author.String
	a.Body = body.String
	return &a, nil
}

// CreateJob inserts a job. CreatedAt is set when zero.
func (s *SQLiteStorage) CreateJob(ctx context.Context, job *models.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.DocumentID, job.SourcePath, job.OutputPath, job.Phrase,
		job.CaseSensitive, string(job.Status), job.Matches, job.Error, job.CreatedAt,
	)
	return err
}

// GetJob returns a job by ID.
func (s *SQLiteStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return job, err
}

// ListJobs returns jobs newest first with offset and limit.
func (s *SQLiteStorage) ListJobs(ctx context.Context, offset, limit int) ([]*models.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteJob removes a job and its annotations.
func (s *SQLiteStorage) DeleteJob(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetAnnotation returns an annotation by ID.
func (s *SQLiteStorage) GetAnnotation(ctx context.Context, id string) (*models.Annotation, error) {
	a, err := scanAnnotation(s.db.QueryRowContext(ctx,
		`SELECT `+annotationColumns+` FROM annotations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("annotation %s: %w", id, ErrNotFound)
	}
	return a, err
}

// GetAnnotationsByJobID returns a job's annotations ordered by comment id.
func (s *SQLiteStorage) GetAnnotationsByJobID(ctx context.Context, jobID string) ([]*models.Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+annotationColumns+` FROM annotations WHERE job_id = ? ORDER BY comment_id`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// BatchCreateAnnotations inserts annotations in a transaction.
func (s *SQLiteStorage) BatchCreateAnnotations(ctx context.Context, annotations []*models.Annotation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO annotations (`+annotationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range annotations {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, a.ID, a.JobID, a.CommentID, a.Paragraph, a.Offset, a.Length,
			a.Text, a.Context, a.Author, a.Body, a.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CountJobs returns the total number of jobs.
func (s *SQLiteStorage) CountJobs(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count)
	return count, err
}

// CountAnnotations returns the total number of annotations.
func (s *SQLiteStorage) CountAnnotations(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM annotations`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
