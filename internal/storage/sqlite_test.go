package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/chushaku/internal/models"
)

func openTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_Jobs(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	older := &models.Job{
		ID: "job1", DocumentID: "doc1", SourcePath: "/in/a.docx", OutputPath: "/out/a.annotated.docx",
		Phrase: "Online Video", Status: models.JobCompleted, Matches: 2,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	if err := store.CreateJob(ctx, older); err != nil {
		t.Fatal(err)
	}
	failed := &models.Job{
		ID: "job2", DocumentID: "doc2", SourcePath: "/in/b.docx", Phrase: "x",
		CaseSensitive: true, Status: models.JobFailed, Error: "corrupt comment store",
	}
	if err := store.CreateJob(ctx, failed); err != nil {
		t.Fatal(err)
	}
	if failed.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetJob(ctx, "job2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.JobFailed || !got.CaseSensitive || got.Error != "corrupt comment store" || got.OutputPath != "" {
		t.Errorf("got %+v", got)
	}

	list, err := store.ListJobs(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "job2" || list[1].ID != "job1" {
		t.Errorf("expected newest first, got %+v", list)
	}
	list, _ = store.ListJobs(ctx, 1, 10)
	if len(list) != 1 || list[0].Matches != 2 {
		t.Errorf("offset 1: got %+v", list)
	}

	if _, err := store.GetJob(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteJob(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_Annotations(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	if err := store.CreateJob(ctx, &models.Job{ID: "j", DocumentID: "d", SourcePath: "a.docx", Phrase: "video", Status: models.JobCompleted}); err != nil {
		t.Fatal(err)
	}
	annotations := []*models.Annotation{
		{ID: "a2", JobID: "j", CommentID: 2, Paragraph: 3, Offset: 4, Length: 5, Text: "Video", Context: "See Video", Author: "CK", Body: "Found video"},
		{ID: "a1", JobID: "j", CommentID: 1, Paragraph: 0, Offset: 0, Length: 5, Text: "video", Author: "CK"},
	}
	if err := store.BatchCreateAnnotations(ctx, annotations); err != nil {
		t.Fatal(err)
	}

	list, err := store.GetAnnotationsByJobID(ctx, "j")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].CommentID != 1 || list[1].CommentID != 2 {
		t.Fatalf("expected comment id order, got %+v", list)
	}
	if list[1].Context != "See Video" || list[1].Offset != 4 || list[1].Paragraph != 3 {
		t.Errorf("got %+v", list[1])
	}

	got, err := store.GetAnnotation(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "video" || got.Context != "" {
		t.Errorf("got %+v", got)
	}

	n, err := store.CountAnnotations(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountAnnotations: %v, %d", err, n)
	}

	if err := store.DeleteJob(ctx, "j"); err != nil {
		t.Fatal(err)
	}
	n, _ = store.CountAnnotations(ctx)
	if n != 0 {
		t.Errorf("expected annotations removed with job, got %d", n)
	}
	if _, err := store.GetAnnotation(ctx, "a1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_Counts(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	n, err := store.CountJobs(ctx)
	if err != nil || n != 0 {
		t.Errorf("CountJobs: %v, %d", err, n)
	}
	_ = store.CreateJob(ctx, &models.Job{ID: "x", DocumentID: "d", SourcePath: "p", Phrase: "q", Status: models.JobCompleted})
	n, _ = store.CountJobs(ctx)
	if n != 1 {
		t.Errorf("expected 1 job, got %d", n)
	}
}
