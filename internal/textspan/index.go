// Package textspan maps offsets in a paragraph's effective text back to the
// runs that hold them. Offsets are byte offsets into the concatenated text.
package textspan

import (
	"sort"
	"strings"

	"github.com/hyperjump/chushaku/internal/doctree"
)

// Span locates a phrase occurrence in effective-text coordinates.
type Span struct {
	Start  int
	Length int
}

// End returns the exclusive end offset.
func (s Span) End() int { return s.Start + s.Length }

// Position is an owning run and an offset within its text.
type Position struct {
	Node   int // index into Paragraph.Nodes
	Run    *doctree.Run
	Offset int
}

type entry struct {
	node  int
	run   *doctree.Run
	start int
}

// Index is the effective text of a paragraph and its offset mapping.
// It is a snapshot: rebuild it after the paragraph changes.
type Index struct {
	base     int
	text     string
	entries  []entry // non-empty runs only
	barriers []int
}

// Build indexes p.
func Build(p *doctree.Paragraph) *Index {
	return BuildFrom(p, 0, 0)
}

// BuildFrom indexes the nodes of p from node index from onward, numbering
// their text from base. Zero-length runs are skipped. A barrier is recorded
// where a node other than a run or a zero-width mark sits, and where adjacent
// runs belong to different scopes.
func BuildFrom(p *doctree.Paragraph, from, base int) *Index {
	var b strings.Builder
	idx := &Index{base: base}
	var scope any
	seen := false
	for i := from; i < len(p.Nodes); i++ {
		n := p.Nodes[i]
		r, ok := n.(*doctree.Run)
		if !ok {
			if !doctree.ZeroWidth(n) {
				idx.addBarrier(base + b.Len())
			}
			continue
		}
		if seen && r.Scope != scope {
			idx.addBarrier(base + b.Len())
		}
		scope, seen = r.Scope, true
		if r.Text == "" {
			continue
		}
		idx.entries = append(idx.entries, entry{node: i, run: r, start: base + b.Len()})
		b.WriteString(r.Text)
	}
	idx.text = b.String()
	return idx
}

func (x *Index) addBarrier(off int) {
	if n := len(x.barriers); n > 0 && x.barriers[n-1] == off {
		return
	}
	x.barriers = append(x.barriers, off)
}

// Text returns the effective text.
func (x *Index) Text() string { return x.text }

// Len returns the effective text length in bytes.
func (x *Index) Len() int { return len(x.text) }

// Barriers returns the offsets of barriers, ascending and deduplicated.
func (x *Index) Barriers() []int { return x.barriers }

// Crosses reports whether a barrier sits strictly inside s.
func (x *Index) Crosses(s Span) bool {
	i := sort.SearchInts(x.barriers, s.Start+1)
	return i < len(x.barriers) && x.barriers[i] < s.End()
}

// Locate returns the run owning offset as a start boundary: the run whose text
// contains the character at offset. The end of the text maps to the end of
// the last run.
func (x *Index) Locate(offset int) (Position, error) {
	end := x.base + len(x.text)
	if offset < x.base || offset > end || len(x.entries) == 0 {
		return Position{}, doctree.Inconsistent("locate", "offset %d outside [%d, %d]", offset, x.base, end)
	}
	if offset == end {
		return x.endOf(len(x.entries) - 1), nil
	}
	e := x.entries[x.search(offset)]
	return Position{Node: e.node, Run: e.run, Offset: offset - e.start}, nil
}

// LocateEnd returns the run owning offset as an end boundary: the run whose
// text ends at or after offset, preferring the earlier run at a boundary.
func (x *Index) LocateEnd(offset int) (Position, error) {
	end := x.base + len(x.text)
	if offset <= x.base || offset > end || len(x.entries) == 0 {
		return Position{}, doctree.Inconsistent("locate", "end offset %d outside (%d, %d]", offset, x.base, end)
	}
	e := x.entries[x.search(offset-1)]
	return Position{Node: e.node, Run: e.run, Offset: offset - e.start}, nil
}

func (x *Index) endOf(i int) Position {
	e := x.entries[i]
	return Position{Node: e.node, Run: e.run, Offset: len(e.run.Text)}
}

// search returns the entry containing the character at offset.
func (x *Index) search(offset int) int {
	return sort.Search(len(x.entries), func(i int) bool {
		return x.entries[i].start > offset
	}) - 1
}
