// Package models defines core records for annotation jobs, annotations, and searches.
package models

import "time"

// JobStatus is the outcome of an annotation job.
type JobStatus string

const (
	// JobCompleted means every match was annotated and the output was written.
	JobCompleted JobStatus = "completed"
	// JobFailed means processing stopped; no output was written.
	JobFailed JobStatus = "failed"
)

// Job records one pass of phrase annotation over a document.
type Job struct {
	ID            string    `json:"id" db:"id"`
	DocumentID    string    `json:"document_id" db:"document_id"`
	SourcePath    string    `json:"source_path" db:"source_path"`
	OutputPath    string    `json:"output_path,omitempty" db:"output_path"`
	Phrase        string    `json:"phrase" db:"phrase"`
	CaseSensitive bool      `json:"case_sensitive" db:"case_sensitive"`
	Status        JobStatus `json:"status" db:"status"`
	Matches       int       `json:"matches" db:"matches"`
	Error         string    `json:"error,omitempty" db:"error"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Annotation is one comment attached to a match, as recorded for a job.
type Annotation struct {
	ID        string    `json:"id" db:"id"`
	JobID     string    `json:"job_id" db:"job_id"`
	CommentID int       `json:"comment_id" db:"comment_id"`
	Paragraph int       `json:"paragraph" db:"paragraph"`
	Offset    int       `json:"offset" db:"offset"`
	Length    int       `json:"length" db:"length"`
	Text      string    `json:"text" db:"text"`
	Context   string    `json:"context" db:"context"`
	Author    string    `json:"author" db:"author"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// JobDetail is a job with its annotations.
type JobDetail struct {
	Job         *Job          `json:"job"`
	Annotations []*Annotation `json:"annotations"`
}
