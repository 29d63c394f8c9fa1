// Package processor runs annotation jobs end to end: it opens a .docx,
// comments every occurrence of a phrase, writes the result, and records the
// job in the journal and the search index.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/chushaku/internal/annotate"
	"github.com/hyperjump/chushaku/internal/config"
	"github.com/hyperjump/chushaku/internal/docx"
	"github.com/hyperjump/chushaku/internal/fileid"
	"github.com/hyperjump/chushaku/internal/keyword"
	"github.com/hyperjump/chushaku/internal/match"
	"github.com/hyperjump/chushaku/internal/models"
	"github.com/hyperjump/chushaku/internal/report"
	"github.com/hyperjump/chushaku/internal/storage"
	"go.uber.org/zap"
)

// Processor annotates documents and records the resulting jobs.
type Processor struct {
	storage      storage.Storage
	keywordIndex keyword.KeywordIndex
	config       *config.AnnotateConfig
	now          func() time.Time
	logger       *zap.Logger // optional; when set, logs debug events
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets a logger for job events.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithClock sets the time source for comment dates and job timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// New creates a processor with the given dependencies.
func New(store storage.Storage, keywordIndex keyword.KeywordIndex, cfg *config.AnnotateConfig, opts ...Option) *Processor {
	p := &Processor{
		storage:      store,
		keywordIndex: keywordIndex,
		config:       cfg,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request selects what a job searches for. Zero fields fall back to config.
type Request struct {
	Phrase string
	// CaseSensitive overrides the configured case policy when non-nil.
	CaseSensitive *bool
}

func (p *Processor) resolve(req Request) (string, bool) {
	phrase := req.Phrase
	if phrase == "" {
		phrase = p.config.Phrase
	}
	caseSensitive := p.config.CaseSensitive
	if req.CaseSensitive != nil {
		caseSensitive = *req.CaseSensitive
	}
	return phrase, caseSensitive
}

// OutputPath returns where the annotated copy of src is written: beside src
// (or in dir when set) with the configured suffix before the extension.
func (p *Processor) OutputPath(src, dir string) string {
	return SuffixedPath(src, dir, p.config.OutputSuffix)
}

// SuffixedPath inserts suffix before the extension of src's base name and
// places the result in dir, or beside src when dir is empty.
func SuffixedPath(src, dir, suffix string) string {
	ext := filepath.Ext(src)
	name := strings.TrimSuffix(filepath.Base(src), ext) + suffix + ext
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, name)
}

// IsOutput reports whether path looks like an annotated copy.
func (p *Processor) IsOutput(path string) bool {
	if p.config.OutputSuffix == "" {
		return false
	}
	base := filepath.Base(path)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), p.config.OutputSuffix)
}

// AnnotateFile annotates the .docx at src and writes the result to dst
// (OutputPath(src, "") when empty). Nothing is written when the job fails.
func (p *Processor) AnnotateFile(ctx context.Context, src, dst string, req Request) (*models.JobDetail, error) {
	absPath, err := filepath.Abs(src)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if dst == "" {
		dst = p.OutputPath(absPath, "")
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	job := &models.Job{DocumentID: fileid.PathID(absPath), SourcePath: absPath, OutputPath: dst}
	detail, out, err := p.run(ctx, job, content, req)
	if err != nil {
		return detail, err
	}
	if err := os.WriteFile(dst, out, 0o644); err != nil {
		return detail, fmt.Errorf("write annotated document: %w", err)
	}
	return detail, nil
}

// AnnotateBytes annotates an in-memory .docx and returns the annotated package.
// name is recorded as the job's source.
func (p *Processor) AnnotateBytes(ctx context.Context, name string, content []byte, req Request) (*models.JobDetail, []byte, error) {
	job := &models.Job{DocumentID: fileid.ContentID(content), SourcePath: name}
	return p.run(ctx, job, content, req)
}

// run annotates content and records job. Invalid requests are rejected
// before a job exists; later failures are recorded as failed jobs.
func (p *Processor) run(ctx context.Context, job *models.Job, content []byte, req Request) (*models.JobDetail, []byte, error) {
	phrase, caseSensitive := p.resolve(req)
	finder, err := match.NewFinder(phrase, match.PolicyFor(caseSensitive))
	if err != nil {
		return nil, nil, err
	}
	job.ID = uuid.New().String()
	job.Phrase = phrase
	job.CaseSensitive = caseSensitive
	job.CreatedAt = p.now()

	annotations, out, runErr := p.annotate(finder, content)
	if runErr != nil {
		job.Status = models.JobFailed
		job.Error = runErr.Error()
		job.OutputPath = ""
		annotations = nil
	} else {
		job.Status = models.JobCompleted
		job.Matches = len(annotations)
	}

	if err := p.record(ctx, job, annotations); err != nil {
		return nil, nil, err
	}
	detail := &models.JobDetail{Job: job, Annotations: annotations}
	if runErr != nil {
		if p.logger != nil {
			p.logger.Warn("annotation job failed", zap.String("job_id", job.ID),
				zap.String("source", job.SourcePath), zap.Error(runErr))
		}
		return detail, nil, fmt.Errorf("job %s: %w", job.ID, runErr)
	}
	if p.logger != nil {
		p.logger.Info("annotation job completed", zap.String("job_id", job.ID),
			zap.String("source", job.SourcePath), zap.Int("matches", job.Matches))
	}
	return detail, out, nil
}

func (p *Processor) annotate(finder *match.Finder, content []byte) ([]*models.Annotation, []byte, error) {
	f, err := docx.Parse(content)
	if err != nil {
		return nil, nil, err
	}
	opts := []annotate.Option{annotate.WithClock(p.now)}
	if p.logger != nil {
		opts = append(opts, annotate.WithLogger(p.logger))
	}
	annotations, err := annotate.New(finder, f.Comments(), p.config, opts...).Document(f.Document())
	if err != nil {
		return nil, nil, err
	}
	out, err := f.Bytes()
	if err != nil {
		return nil, nil, err
	}
	return annotations, out, nil
}

// record stores the job and its annotations and indexes the annotations.
func (p *Processor) record(ctx context.Context, job *models.Job, annotations []*models.Annotation) error {
	if err := p.storage.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to store job: %w", err)
	}
	for _, a := range annotations {
		a.ID = uuid.New().String()
		a.JobID = job.ID
	}
	if len(annotations) == 0 {
		return nil
	}
	if err := p.storage.BatchCreateAnnotations(ctx, annotations); err != nil {
		return fmt.Errorf("failed to store annotations: %w", err)
	}
	for _, a := range annotations {
		if err := p.keywordIndex.Index(ctx, a); err != nil {
			return fmt.Errorf("failed to index annotation: %w", err)
		}
	}
	return nil
}

// Job returns a job with its annotations.
func (p *Processor) Job(ctx context.Context, id string) (*models.JobDetail, error) {
	job, err := p.storage.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	annotations, err := p.storage.GetAnnotationsByJobID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.JobDetail{Job: job, Annotations: annotations}, nil
}

// Jobs lists jobs newest first.
func (p *Processor) Jobs(ctx context.Context, offset, limit int) ([]*models.Job, error) {
	return p.storage.ListJobs(ctx, offset, limit)
}

// DeleteJob removes a job, its annotations, and their index entries.
func (p *Processor) DeleteJob(ctx context.Context, id string) error {
	annotations, err := p.storage.GetAnnotationsByJobID(ctx, id)
	if err != nil {
		return err
	}
	for _, a := range annotations {
		if err := p.keywordIndex.Delete(ctx, a.ID); err != nil {
			return fmt.Errorf("failed to delete from keyword index: %w", err)
		}
	}
	if err := p.storage.DeleteJob(ctx, id); err != nil {
		return err
	}
	if p.logger != nil {
		p.logger.Debug("job deleted", zap.String("job_id", id), zap.Int("annotations", len(annotations)))
	}
	return nil
}

// Report writes the XLSX report of a job to w.
func (p *Processor) Report(ctx context.Context, id string, w io.Writer) error {
	detail, err := p.Job(ctx, id)
	if err != nil {
		return err
	}
	return report.Write(w, detail.Job, detail.Annotations)
}

// Search finds recorded annotations by their matched text or paragraph.
// When an exact search finds nothing, it is retried with fuzzy matching.
func (p *Processor) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}
	opts := &keyword.SearchOptions{TextBoost: 2, FuzzyEnabled: query.FuzzyEnabled}
	hits, err := p.keywordIndex.Search(ctx, query.Query, query.Limit, opts)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	autoFuzzy := false
	if len(hits) == 0 && !query.FuzzyEnabled {
		opts.FuzzyEnabled = true
		if hits, err = p.keywordIndex.Search(ctx, query.Query, query.Limit, opts); err != nil {
			return nil, fmt.Errorf("keyword search failed: %w", err)
		}
		autoFuzzy = len(hits) > 0
	}

	resp := &models.SearchResponse{
		Results:   make([]*models.SearchResult, 0, len(hits)),
		Query:     query.Query,
		AutoFuzzy: autoFuzzy,
	}
	for _, hit := range hits {
		a, err := p.storage.GetAnnotation(ctx, hit.ID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		resp.Results = append(resp.Results, &models.SearchResult{
			Annotation: a,
			Score:      hit.Score,
			Rank:       len(resp.Results) + 1,
		})
	}
	resp.Total = len(resp.Results)
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

// Status summarizes the journal and index.
type Status struct {
	Jobs        int64  `json:"jobs"`
	Annotations int64  `json:"annotations"`
	Indexed     uint64 `json:"indexed"`
}

// Status counts jobs, annotations, and indexed annotations.
func (p *Processor) Status(ctx context.Context) (*Status, error) {
	jobs, err := p.storage.CountJobs(ctx)
	if err != nil {
		return nil, err
	}
	annotations, err := p.storage.CountAnnotations(ctx)
	if err != nil {
		return nil, err
	}
	indexed, err := p.keywordIndex.DocCount()
	if err != nil {
		return nil, err
	}
	return &Status{Jobs: jobs, Annotations: annotations, Indexed: indexed}, nil
}
