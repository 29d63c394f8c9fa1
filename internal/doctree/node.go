// Package doctree is the in-memory paragraph model that annotation operates on:
// paragraphs hold an ordered sequence of runs, comment markers, and opaque nodes.
package doctree

// Node is a child of a Paragraph. Nodes are compared by identity.
type Node interface {
	// Kind names the node type for logs and errors.
	Kind() string
}

// Run is a leaf text-bearing node. Its text is never edited in place;
// splitting replaces the run with new runs.
type Run struct {
	Text string
	// Preserve asks renderers to keep leading, trailing, and repeated whitespace.
	Preserve bool
	// Props is formatting carried verbatim from the source format (e.g. a w:rPr
	// element). Pieces split from a run share it.
	Props any
	// Source is the backing element this run was loaded from; nil for runs
	// created by a split.
	Source any
	// Scope is the inline container holding the run inside its paragraph (a
	// hyperlink or tracked insertion, say); nil at paragraph level. Pieces
	// share it, and a match never joins runs of different scopes.
	Scope any
}

// NewRun returns a run holding text with whitespace preservation enabled.
func NewRun(text string) *Run {
	return &Run{Text: text, Preserve: true}
}

// Piece returns a new run holding text and inheriting r's formatting.
// Pieces always preserve whitespace.
func (r *Run) Piece(text string) *Run {
	return &Run{Text: text, Preserve: true, Props: r.Props, Scope: r.Scope}
}

func (r *Run) Kind() string { return "run" }

// CommentRangeStart opens the commented range for annotation ID.
type CommentRangeStart struct{ ID int }

func (m *CommentRangeStart) Kind() string { return "commentRangeStart" }

// CommentRangeEnd closes the commented range for annotation ID.
type CommentRangeEnd struct{ ID int }

func (m *CommentRangeEnd) Kind() string { return "commentRangeEnd" }

// CommentReference is the run-level reference mark for annotation ID.
type CommentReference struct{ ID int }

func (m *CommentReference) Kind() string { return "commentReference" }

// Opaque wraps a paragraph child the model does not interpret (tabs, breaks,
// fields, drawings, bookmarks). It carries no text and is written back unchanged.
type Opaque struct {
	Name   string
	Source any
	Scope  any
	// Mark is set for zero-width range boundaries such as bookmarks. A match
	// may cross a mark; the mark then moves in front of the match run.
	Mark bool
}

func (o *Opaque) Kind() string { return "opaque:" + o.Name }

// ZeroWidth reports whether n occupies no position in the rendered text, so a
// match may span it: comment range boundaries and opaque marks.
func ZeroWidth(n Node) bool {
	switch n := n.(type) {
	case *CommentRangeStart, *CommentRangeEnd:
		return true
	case *Opaque:
		return n.Mark
	}
	return false
}

// MarkerID returns the annotation id of a marker node.
func MarkerID(n Node) (int, bool) {
	switch m := n.(type) {
	case *CommentRangeStart:
		return m.ID, true
	case *CommentRangeEnd:
		return m.ID, true
	case *CommentReference:
		return m.ID, true
	}
	return 0, false
}
