package doctree

import "strings"

// Paragraph is an ordered container of nodes. Its effective text is the
// concatenation of its runs' text; markers and opaque nodes contribute nothing.
type Paragraph struct {
	Nodes []Node
	// Source is the backing element the paragraph was loaded from.
	Source any
	dirty  bool
}

// NewParagraph returns a paragraph holding nodes in order.
func NewParagraph(nodes ...Node) *Paragraph {
	return &Paragraph{Nodes: nodes}
}

// Document is an ordered sequence of paragraphs.
type Document struct {
	Paragraphs []*Paragraph
}

// Text returns the effective text of the paragraph.
func (p *Paragraph) Text() string {
	var b strings.Builder
	for _, n := range p.Nodes {
		if r, ok := n.(*Run); ok {
			b.WriteString(r.Text)
		}
	}
	return b.String()
}

// Runs returns the text runs in order.
func (p *Paragraph) Runs() []*Run {
	var runs []*Run
	for _, n := range p.Nodes {
		if r, ok := n.(*Run); ok {
			runs = append(runs, r)
		}
	}
	return runs
}

// Modified reports whether any node was inserted or removed since load.
func (p *Paragraph) Modified() bool {
	return p.dirty
}

// IndexOf returns the position of n, or -1.
func (p *Paragraph) IndexOf(n Node) int {
	for i, c := range p.Nodes {
		if c == n {
			return i
		}
	}
	return -1
}

// InsertBefore inserts n immediately before mark.
func (p *Paragraph) InsertBefore(n, mark Node) error {
	i := p.IndexOf(mark)
	if i < 0 {
		return Inconsistent("insert", "sibling %s not in paragraph", mark.Kind())
	}
	p.insertAt(i, n)
	return nil
}

// InsertAfter inserts n immediately after mark.
func (p *Paragraph) InsertAfter(n, mark Node) error {
	i := p.IndexOf(mark)
	if i < 0 {
		return Inconsistent("insert", "sibling %s not in paragraph", mark.Kind())
	}
	p.insertAt(i+1, n)
	return nil
}

// Remove detaches n from the paragraph.
func (p *Paragraph) Remove(n Node) error {
	i := p.IndexOf(n)
	if i < 0 {
		return Inconsistent("remove", "%s not in paragraph", n.Kind())
	}
	p.Nodes = append(p.Nodes[:i], p.Nodes[i+1:]...)
	p.dirty = true
	return nil
}

// Replace substitutes old with nodes, keeping their order.
func (p *Paragraph) Replace(old Node, nodes ...Node) error {
	i := p.IndexOf(old)
	if i < 0 {
		return Inconsistent("replace", "%s not in paragraph", old.Kind())
	}
	out := make([]Node, 0, len(p.Nodes)-1+len(nodes))
	out = append(out, p.Nodes[:i]...)
	out = append(out, nodes...)
	out = append(out, p.Nodes[i+1:]...)
	p.Nodes = out
	p.dirty = true
	return nil
}

func (p *Paragraph) insertAt(i int, n Node) {
	p.Nodes = append(p.Nodes, nil)
	copy(p.Nodes[i+1:], p.Nodes[i:])
	p.Nodes[i] = n
	p.dirty = true
}
