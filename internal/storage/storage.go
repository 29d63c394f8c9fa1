// Package storage defines the persistence interface for annotation jobs.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/chushaku/internal/models"
)

// ErrNotFound is returned when a job or annotation does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines job and annotation persistence operations.
type Storage interface {
	// Job operations
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context, offset, limit int) ([]*models.Job, error)
	DeleteJob(ctx context.Context, id string) error

	// Annotation operations
	GetAnnotation(ctx context.Context, id string) (*models.Annotation, error)
	GetAnnotationsByJobID(ctx context.Context, jobID string) ([]*models.Annotation, error)

	// Batch operations
	BatchCreateAnnotations(ctx context.Context, annotations []*models.Annotation) error

	// Stats
	CountJobs(ctx context.Context) (int64, error)
	CountAnnotations(ctx context.Context) (int64, error)

	Close() error
}
