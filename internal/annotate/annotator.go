// Package annotate scans a document's paragraphs for a phrase and attaches a
// comment to every occurrence.
package annotate

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/chushaku/internal/anchor"
	"github.com/hyperjump/chushaku/internal/comments"
	"github.com/hyperjump/chushaku/internal/config"
	"github.com/hyperjump/chushaku/internal/doctree"
	"github.com/hyperjump/chushaku/internal/match"
	"github.com/hyperjump/chushaku/internal/models"
	"github.com/hyperjump/chushaku/internal/resolve"
	"github.com/hyperjump/chushaku/internal/textspan"
	"go.uber.org/zap"
)

// Annotator comments every occurrence of a phrase in a document.
// It is not safe for concurrent use; one Annotator serves one document.
type Annotator struct {
	finder   *match.Finder
	anchorer *anchor.Anchorer
	config   *config.AnnotateConfig
	now      func() time.Time
	logger   *zap.Logger // optional; when set, logs debug events
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithLogger sets a logger for debug output (paragraph matches, comment ids).
func WithLogger(l *zap.Logger) Option {
	return func(a *Annotator) { a.logger = l }
}

// WithClock sets the comment timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Annotator) { a.now = now }
}

// New returns an annotator writing comments to store.
func New(finder *match.Finder, store comments.Store, cfg *config.AnnotateConfig, opts ...Option) *Annotator {
	a := &Annotator{finder: finder, config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	var anchorOpts []anchor.Option
	if a.now != nil {
		anchorOpts = append(anchorOpts, anchor.WithClock(a.now))
	}
	a.anchorer = anchor.New(store, anchorOpts...)
	return a
}

// Document annotates every paragraph of doc in order. Processing stops at the
// first error; the document is then partially edited and must be discarded.
func (a *Annotator) Document(doc *doctree.Document) ([]*models.Annotation, error) {
	var out []*models.Annotation
	for i, p := range doc.Paragraphs {
		found, err := a.Paragraph(i, p)
		if err != nil {
			return nil, fmt.Errorf("paragraph %d: %w", i, err)
		}
		out = append(out, found...)
	}
	return out, nil
}

// Paragraph annotates one paragraph. Spans are found once against the
// paragraph's current text and applied left to right.
func (a *Annotator) Paragraph(index int, p *doctree.Paragraph) ([]*models.Annotation, error) {
	idx := textspan.Build(p)
	spans := a.finder.FindIn(idx)
	if len(spans) == 0 {
		return nil, nil
	}
	text := idx.Text()
	res := resolve.New(p)
	out := make([]*models.Annotation, 0, len(spans))
	for _, span := range spans {
		run, err := res.Resolve(span)
		if err != nil {
			return nil, err
		}
		entry, err := a.anchorer.Anchor(p, run, anchor.Comment{
			Author:   a.config.Author,
			Initials: a.config.Initials,
			Body:     a.body(run.Text),
		})
		if err != nil {
			return nil, err
		}
		if a.logger != nil {
			a.logger.Debug("match annotated",
				zap.Int("paragraph", index),
				zap.Int("offset", span.Start),
				zap.Int("comment_id", entry.ID))
		}
		out = append(out, &models.Annotation{
			CommentID: entry.ID,
			Paragraph: index,
			Offset:    span.Start,
			Length:    span.Length,
			Text:      run.Text,
			Context:   text,
			Author:    entry.Author,
			Body:      entry.Body,
			CreatedAt: entry.Date,
		})
	}
	return out, nil
}

func (a *Annotator) body(matched string) string {
	r := strings.NewReplacer("{phrase}", a.finder.Phrase(), "{match}", matched)
	return r.Replace(a.config.BodyTemplate)
}
