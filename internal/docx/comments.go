package docx

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/hyperjump/chushaku/internal/comments"
)

const emptyComments = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:comments xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"></w:comments>`

// CommentsPart is the comments.Store backed by a package's comments part.
// Entries are read from and appended to the part's XML; Persist writes the
// part back into the package, registering it on first use.
type CommentsPart struct {
	file *File
	name string
	root *xmlquery.Node
	// registered is false for a part created in memory until its relationship
	// and content type are added.
	registered bool
}

var _ comments.Store = (*CommentsPart)(nil)

func newCommentsPart(f *File, name string, data []byte, registered bool) (*CommentsPart, error) {
	root, err := parseXML(name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", comments.ErrCorruptStore, err)
	}
	if xmlquery.QuerySelector(root, commentsRootExpr) == nil {
		return nil, fmt.Errorf("%s has no w:comments root: %w", name, comments.ErrCorruptStore)
	}
	return &CommentsPart{file: f, name: name, root: root, registered: registered}, nil
}

// Name is the part's path inside the package.
func (c *CommentsPart) Name() string { return c.name }

// Entries reads every w:comment in document order.
func (c *CommentsPart) Entries() ([]comments.Entry, error) {
	nodes := xmlquery.QuerySelectorAll(c.root, commentsExpr)
	entries := make([]comments.Entry, 0, len(nodes))
	for _, n := range nodes {
		e, err := readEntry(n)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func readEntry(n *xmlquery.Node) (comments.Entry, error) {
	raw, _ := attr(n, "w", "id")
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return comments.Entry{}, fmt.Errorf("comment id %q: %w", raw, comments.ErrCorruptStore)
	}
	e := comments.Entry{ID: id}
	e.Author, _ = attr(n, "w", "author")
	e.Initials, _ = attr(n, "w", "initials")
	if d, ok := attr(n, "w", "date"); ok && strings.TrimSpace(d) != "" {
		if e.Date, err = parseDate(d); err != nil {
			return comments.Entry{}, fmt.Errorf("comment %d date %q: %w", id, d, comments.ErrCorruptStore)
		}
	}
	var paras []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isW(c, "p") {
			paras = append(paras, c.InnerText())
		}
	}
	e.Body = strings.Join(paras, "\n")
	return e, nil
}

// dateLayouts are the accepted w:date forms. A date without a zone is read as UTC.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// Append adds e as a w:comment holding one paragraph per body line.
func (c *CommentsPart) Append(e comments.Entry) error {
	existing, err := c.Entries()
	if err != nil {
		return err
	}
	if err := comments.CheckAppend(existing, e); err != nil {
		return err
	}
	el := element("comment", "id", strconv.Itoa(e.ID), "author", e.Author)
	if !e.Date.IsZero() {
		setAttr(el, "w", "date", e.Date.UTC().Format(time.RFC3339))
	}
	setAttr(el, "w", "initials", e.Initials)
	for i, line := range strings.Split(e.Body, "\n") {
		p := element("p")
		if i == 0 {
			ref := element("r")
			xmlquery.AddChild(ref, element("annotationRef"))
			xmlquery.AddChild(p, ref)
		}
		r := element("r")
		t := element("t")
		setAttr(t, "xml", "space", "preserve")
		xmlquery.AddChild(t, textNode(line))
		xmlquery.AddChild(r, t)
		xmlquery.AddChild(p, r)
		xmlquery.AddChild(el, p)
	}
	xmlquery.AddChild(xmlquery.QuerySelector(c.root, commentsRootExpr), el)
	return nil
}

func (c *CommentsPart) NextID() (int, error) {
	entries, err := c.Entries()
	if err != nil {
		return 0, err
	}
	return comments.NextID(entries), nil
}

// Persist writes the part into the package. A newly created part is linked
// from the main document and declared in [Content_Types].xml.
func (c *CommentsPart) Persist() error {
	if !c.registered {
		if err := c.file.registerComments(c.name); err != nil {
			return err
		}
		c.registered = true
	}
	c.file.pkg.SetPart(c.name, serialize(c.root))
	return nil
}
