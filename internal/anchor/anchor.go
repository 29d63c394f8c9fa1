// Package anchor attaches a comment to a match run: it allocates an id from
// the store, records the entry, and brackets the run with comment markers.
package anchor

import (
	"fmt"
	"time"

	"github.com/hyperjump/chushaku/internal/comments"
	"github.com/hyperjump/chushaku/internal/doctree"
)

// Comment is the caller-supplied part of a new entry.
type Comment struct {
	Author   string
	Initials string
	Body     string
}

// Anchorer inserts comment markers backed by a store.
type Anchorer struct {
	store comments.Store
	now   func() time.Time
}

// Option configures an Anchorer.
type Option func(*Anchorer)

// WithClock sets the timestamp source for new entries.
func WithClock(now func() time.Time) Option {
	return func(a *Anchorer) { a.now = now }
}

// New returns an Anchorer writing entries to store.
func New(store comments.Store, opts ...Option) *Anchorer {
	a := &Anchorer{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Anchor records c under a fresh id and surrounds run with range-start,
// range-end, and reference markers carrying that id. The store is persisted
// before returning.
func (a *Anchorer) Anchor(p *doctree.Paragraph, run *doctree.Run, c Comment) (comments.Entry, error) {
	if p.IndexOf(run) < 0 {
		return comments.Entry{}, doctree.Inconsistent("anchor", "match run not in paragraph")
	}
	id, err := a.store.NextID()
	if err != nil {
		return comments.Entry{}, fmt.Errorf("allocate comment id: %w", err)
	}
	entry := comments.Entry{
		ID:       id,
		Author:   c.Author,
		Initials: c.Initials,
		Date:     a.now(),
		Body:     c.Body,
	}
	if err := a.store.Append(entry); err != nil {
		return comments.Entry{}, fmt.Errorf("append comment %d: %w", id, err)
	}

	if err := p.InsertBefore(&doctree.CommentRangeStart{ID: id}, run); err != nil {
		return comments.Entry{}, err
	}
	end := &doctree.CommentRangeEnd{ID: id}
	if err := p.InsertAfter(end, run); err != nil {
		return comments.Entry{}, err
	}
	if err := p.InsertAfter(&doctree.CommentReference{ID: id}, end); err != nil {
		return comments.Entry{}, err
	}

	if err := a.store.Persist(); err != nil {
		return comments.Entry{}, fmt.Errorf("persist comments: %w", err)
	}
	return entry, nil
}
