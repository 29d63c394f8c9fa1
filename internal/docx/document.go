package docx

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/hyperjump/chushaku/internal/doctree"
)

// runContainers are inline wrappers whose runs take part in matching. Their
// runs are loaded with the container as scope and written back inside it.
var runContainers = map[string]bool{
	"hyperlink":  true,
	"ins":        true,
	"moveTo":     true,
	"smartTag":   true,
	"customXml":  true,
	"sdt":        true,
	"sdtContent": true,
	"fldSimple":  true,
	"dir":        true,
	"bdo":        true,
}

// rangeMarks are zero-width paragraph children a match may cross.
var rangeMarks = map[string]bool{
	"bookmarkStart":     true,
	"bookmarkEnd":       true,
	"commentRangeStart": true,
	"commentRangeEnd":   true,
	"permStart":         true,
	"permEnd":           true,
}

// loadDocument maps every w:p under root to a doctree paragraph. A w:r whose
// only content is one w:t (plus formatting) becomes a Run; runs inside inline
// containers are loaded in place with the container as scope; every other
// child is kept as an Opaque node. Spell-check marks (w:proofErr) and
// inter-element whitespace are dropped from the model and disappear only from
// paragraphs that are later rewritten.
func loadDocument(root *xmlquery.Node) *doctree.Document {
	doc := &doctree.Document{}
	for _, p := range xmlquery.QuerySelectorAll(root, paragraphsExpr) {
		doc.Paragraphs = append(doc.Paragraphs, loadParagraph(p))
	}
	return doc
}

func loadParagraph(el *xmlquery.Node) *doctree.Paragraph {
	p := &doctree.Paragraph{Source: el}
	loadChildren(p, el, nil)
	return p
}

func loadChildren(p *doctree.Paragraph, el *xmlquery.Node, scope any) {
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == xmlquery.TextNode && strings.TrimSpace(c.Data) == "":
		case c.Type != xmlquery.ElementNode:
			p.Nodes = append(p.Nodes, &doctree.Opaque{Name: "#text", Source: c, Scope: scope})
		case isW(c, "proofErr"):
		case isW(c, "r"):
			if run, ok := loadRun(c); ok {
				run.Scope = scope
				p.Nodes = append(p.Nodes, run)
				continue
			}
			p.Nodes = append(p.Nodes, &doctree.Opaque{Name: "r", Source: c, Scope: scope})
		case runContainers[wName(c)]:
			n := len(p.Nodes)
			loadChildren(p, c, c)
			if len(p.Nodes) == n {
				p.Nodes = append(p.Nodes, &doctree.Opaque{Name: c.Data, Source: c, Scope: scope})
			}
		default:
			p.Nodes = append(p.Nodes, &doctree.Opaque{Name: c.Data, Source: c, Scope: scope, Mark: rangeMarks[wName(c)]})
		}
	}
}

func loadRun(r *xmlquery.Node) (*doctree.Run, bool) {
	var props, text *xmlquery.Node
	for c := r.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == xmlquery.TextNode && strings.TrimSpace(c.Data) == "":
		case isW(c, "rPr"):
			props = c
		case isW(c, "lastRenderedPageBreak"):
		case isW(c, "t") && text == nil:
			text = c
		default:
			return nil, false
		}
	}
	if text == nil {
		return nil, false
	}
	space, _ := attr(text, "xml", "space")
	run := &doctree.Run{Text: text.InnerText(), Preserve: space == "preserve", Source: r}
	if props != nil {
		run.Props = props
	}
	return run, true
}

// syncParagraph rewrites the children of a modified paragraph's element, and
// of the containers inside it, from its node sequence. Loaded runs, opaque
// nodes, and containers reuse their original elements.
func syncParagraph(p *doctree.Paragraph) {
	el, ok := p.Source.(*xmlquery.Node)
	if !ok || !p.Modified() {
		return
	}
	// Container chains come from parent links, which detaching clears.
	chains := make([][]*xmlquery.Node, len(p.Nodes))
	for i, s := range nodeScopes(p.Nodes) {
		chains[i] = containerChain(el, s)
	}
	for _, c := range children(el) {
		xmlquery.RemoveFromTree(c)
	}
	cleared := map[*xmlquery.Node]bool{}
	for _, chain := range chains {
		for _, c := range chain {
			if !cleared[c] {
				cleared[c] = true
				for _, gc := range children(c) {
					xmlquery.RemoveFromTree(gc)
				}
			}
		}
	}

	var open []*xmlquery.Node
	for i, n := range p.Nodes {
		chain := chains[i]
		k := 0
		for k < len(open) && k < len(chain) && open[k] == chain[k] {
			k++
		}
		open = open[:k]
		for _, c := range chain[k:] {
			xmlquery.AddChild(innermost(el, open), c)
			open = append(open, c)
		}
		if c := renderNode(n); c != nil {
			xmlquery.AddChild(innermost(el, open), c)
		}
	}
}

func innermost(el *xmlquery.Node, open []*xmlquery.Node) *xmlquery.Node {
	if len(open) == 0 {
		return el
	}
	return open[len(open)-1]
}

// nodeScopes returns the container each node belongs in. Comment markers take
// the scope of the run they wrap: a range start the following node's, a range
// end or reference the preceding node's.
func nodeScopes(nodes []doctree.Node) []any {
	own := func(n doctree.Node) (any, bool) {
		switch n := n.(type) {
		case *doctree.Run:
			return n.Scope, true
		case *doctree.Opaque:
			return n.Scope, true
		}
		return nil, false
	}
	scopes := make([]any, len(nodes))
	for i, n := range nodes {
		if s, ok := own(n); ok {
			scopes[i] = s
			continue
		}
		forward := false
		if _, ok := n.(*doctree.CommentRangeStart); ok {
			forward = true
		}
		scopes[i] = neighborScope(nodes, i, forward, own)
	}
	return scopes
}

func neighborScope(nodes []doctree.Node, i int, forward bool, own func(doctree.Node) (any, bool)) any {
	for _, dir := range []bool{forward, !forward} {
		step := -1
		if dir {
			step = 1
		}
		for j := i + step; j >= 0 && j < len(nodes); j += step {
			if s, ok := own(nodes[j]); ok {
				return s
			}
		}
	}
	return nil
}

// containerChain lists the containers from just below el down to scope.
func containerChain(el *xmlquery.Node, scope any) []*xmlquery.Node {
	c, ok := scope.(*xmlquery.Node)
	if !ok || c == nil {
		return nil
	}
	var chain []*xmlquery.Node
	for ; c != nil && c != el; c = c.Parent {
		chain = append(chain, c)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func renderNode(n doctree.Node) *xmlquery.Node {
	switch n := n.(type) {
	case *doctree.Run:
		if src, ok := n.Source.(*xmlquery.Node); ok {
			return src
		}
		return renderRun(n)
	case *doctree.CommentRangeStart:
		return element("commentRangeStart", "id", strconv.Itoa(n.ID))
	case *doctree.CommentRangeEnd:
		return element("commentRangeEnd", "id", strconv.Itoa(n.ID))
	case *doctree.CommentReference:
		r := element("r")
		xmlquery.AddChild(r, element("commentReference", "id", strconv.Itoa(n.ID)))
		return r
	case *doctree.Opaque:
		if src, ok := n.Source.(*xmlquery.Node); ok {
			return src
		}
	}
	return nil
}

// renderRun builds a w:r for a run created by a split, cloning its formatting.
func renderRun(run *doctree.Run) *xmlquery.Node {
	r := element("r")
	if props, ok := run.Props.(*xmlquery.Node); ok {
		xmlquery.AddChild(r, clone(props))
	}
	t := element("t")
	if run.Preserve {
		setAttr(t, "xml", "space", "preserve")
	}
	xmlquery.AddChild(t, textNode(run.Text))
	xmlquery.AddChild(r, t)
	return r
}
