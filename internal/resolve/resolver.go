// Package resolve turns match spans in a paragraph's effective text into
// dedicated runs, one per match, splitting and merging runs as needed.
package resolve

import (
	"strings"

	"github.com/hyperjump/chushaku/internal/doctree"
	"github.com/hyperjump/chushaku/internal/runsplit"
	"github.com/hyperjump/chushaku/internal/textspan"
)

// Resolver applies spans to one paragraph in a single forward pass.
//
// Spans must be computed once against the paragraph's text before any edit and
// passed to Resolve in ascending, non-overlapping order. The resolver keeps a
// cursor just past the last match run, so edits it makes (and markers inserted
// around that run between calls) never shift the spans still to come.
type Resolver struct {
	p    *doctree.Paragraph
	last *doctree.Run // most recent match run; the walk resumes after it
	base int          // effective-text offset at the cursor
}

// New returns a resolver positioned at the start of p.
func New(p *doctree.Paragraph) *Resolver {
	return &Resolver{p: p}
}

// Resolve materializes span as a single run and returns it.
func (r *Resolver) Resolve(span textspan.Span) (*doctree.Run, error) {
	if span.Length < 1 {
		return nil, doctree.Inconsistent("resolve", "span at %d has length %d", span.Start, span.Length)
	}
	if span.Start < r.base {
		return nil, doctree.Inconsistent("resolve", "span at %d precedes cursor at %d", span.Start, r.base)
	}

	from, err := r.cursor()
	if err != nil {
		return nil, err
	}
	idx := textspan.BuildFrom(r.p, from, r.base)
	if span.End() > r.base+idx.Len() {
		return nil, doctree.Inconsistent("resolve", "end of span [%d, %d) not found", span.Start, span.End())
	}
	start, err := idx.Locate(span.Start)
	if err != nil {
		return nil, err
	}
	end, err := idx.LocateEnd(span.End())
	if err != nil {
		return nil, err
	}

	var match *doctree.Run
	if start.Run == end.Run {
		match, err = runsplit.Split(r.p, start.Run, start.Offset, span.Length)
	} else {
		match, err = r.spanRuns(start, end, span)
	}
	if err != nil {
		return nil, err
	}
	r.last = match
	r.base = span.End()
	return match, nil
}

// cursor returns the node index where the next walk begins.
func (r *Resolver) cursor() (int, error) {
	if r.last == nil {
		return 0, nil
	}
	i := r.p.IndexOf(r.last)
	if i < 0 {
		return 0, doctree.Inconsistent("resolve", "previous match run was detached")
	}
	return i + 1, nil
}

// spanRuns handles a match that starts in one run and ends in a later one.
// The start run, every run wholly inside the match, and the run holding the
// end boundary are replaced by prefix, match, and suffix runs. Zero-width
// nodes inside the match move in front of the match run.
func (r *Resolver) spanRuns(start, end textspan.Position, span textspan.Span) (*doctree.Run, error) {
	first, terminal := start.Run, end.Run

	var text strings.Builder
	text.WriteString(first.Text[start.Offset:])
	var inner []*doctree.Run
	var carried []doctree.Node
	for _, n := range r.p.Nodes[start.Node+1 : end.Node] {
		run, ok := n.(*doctree.Run)
		switch {
		case ok && run.Scope != first.Scope:
			return nil, doctree.Inconsistent("resolve", "span [%d, %d) leaves its container", span.Start, span.End())
		case ok:
			text.WriteString(run.Text)
			inner = append(inner, run)
		case doctree.ZeroWidth(n):
			carried = append(carried, n)
		default:
			return nil, doctree.Inconsistent("resolve", "span [%d, %d) crosses %s", span.Start, span.End(), n.Kind())
		}
	}
	if terminal.Scope != first.Scope {
		return nil, doctree.Inconsistent("resolve", "span [%d, %d) leaves its container", span.Start, span.End())
	}
	text.WriteString(terminal.Text[:end.Offset])

	match := first.Piece(text.String())
	if err := r.p.InsertBefore(match, first); err != nil {
		return nil, err
	}
	if start.Offset > 0 {
		if err := r.p.InsertBefore(first.Piece(first.Text[:start.Offset]), match); err != nil {
			return nil, err
		}
	}
	for _, n := range carried {
		if err := r.p.Remove(n); err != nil {
			return nil, err
		}
		if err := r.p.InsertBefore(n, match); err != nil {
			return nil, err
		}
	}
	for _, run := range inner {
		if err := r.p.Remove(run); err != nil {
			return nil, err
		}
	}
	if rest := terminal.Text[end.Offset:]; rest != "" {
		if err := r.p.InsertAfter(terminal.Piece(rest), match); err != nil {
			return nil, err
		}
	}
	if err := r.p.Remove(terminal); err != nil {
		return nil, err
	}
	if err := r.p.Remove(first); err != nil {
		return nil, err
	}
	return match, nil
}
