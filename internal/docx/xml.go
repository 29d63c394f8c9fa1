package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

const (
	nsW        = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsXML      = "http://www.w3.org/XML/1998/namespace"
	nsRels     = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsTypes    = "http://schemas.openxmlformats.org/package/2006/content-types"
	relComment = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	ctComments = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
)

var (
	paragraphsExpr    = mustCompileW("//w:p")
	commentsExpr      = mustCompileW("//w:comment")
	commentsRootExpr  = mustCompileW("/w:comments")
	overridesExpr     = xpath.MustCompile("//Override")
	typesRootExpr     = xpath.MustCompile("/Types")
	relationshipsExpr = xpath.MustCompile("//Relationship")
	relsRootExpr      = xpath.MustCompile("/Relationships")
)

// mustCompileW compiles expr binding the w prefix to the WordprocessingML
// namespace, so documents using another prefix still match.
func mustCompileW(expr string) *xpath.Expr {
	e, err := xpath.CompileWithNS(expr, map[string]string{"w": nsW})
	if err != nil {
		panic(err)
	}
	return e
}

func parseXML(name string, data []byte) (*xmlquery.Node, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("docx: parse %s: %w", name, err)
	}
	return root, nil
}

// isW reports whether n is the WordprocessingML element local.
func isW(n *xmlquery.Node, local string) bool {
	if n == nil || n.Type != xmlquery.ElementNode || n.Data != local {
		return false
	}
	return n.NamespaceURI == nsW || n.Prefix == "w"
}

// wName returns the local name of a WordprocessingML element, or "".
func wName(n *xmlquery.Node) string {
	if n != nil && isW(n, n.Data) {
		return n.Data
	}
	return ""
}

// attr returns the value of the attribute with the given local name whose
// prefix (or namespace) matches space; space "" matches unprefixed attributes.
func attr(n *xmlquery.Node, space, local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local != local {
			continue
		}
		if a.Name.Space == space || (space == "xml" && a.Name.Space == nsXML) ||
			(space == "w" && (a.Name.Space == nsW || a.NamespaceURI == nsW)) {
			return a.Value, true
		}
	}
	return "", false
}

func setAttr(n *xmlquery.Node, space, local, value string) {
	for i, a := range n.Attr {
		if a.Name.Local == local && a.Name.Space == space {
			n.Attr[i].Value = value
			return
		}
	}
	n.Attr = append(n.Attr, xmlquery.Attr{Name: xml.Name{Space: space, Local: local}, Value: value})
}

// element builds a WordprocessingML element with w-prefixed attributes given as name/value pairs.
func element(local string, attrs ...string) *xmlquery.Node {
	n := &xmlquery.Node{Type: xmlquery.ElementNode, Data: local, Prefix: "w", NamespaceURI: nsW}
	for i := 0; i+1 < len(attrs); i += 2 {
		setAttr(n, "w", attrs[i], attrs[i+1])
	}
	return n
}

func textNode(s string) *xmlquery.Node {
	return &xmlquery.Node{Type: xmlquery.TextNode, Data: s}
}

func children(n *xmlquery.Node) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// clone deep-copies n without parent or sibling links.
func clone(n *xmlquery.Node) *xmlquery.Node {
	c := &xmlquery.Node{
		Type:         n.Type,
		Data:         n.Data,
		Prefix:       n.Prefix,
		NamespaceURI: n.NamespaceURI,
		Attr:         append([]xmlquery.Attr(nil), n.Attr...),
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		xmlquery.AddChild(c, clone(ch))
	}
	return c
}

// serialize writes n back as XML without reformatting whitespace.
func serialize(n *xmlquery.Node) []byte {
	var b bytes.Buffer
	writeNode(&b, n)
	return b.Bytes()
}

func writeNode(b *bytes.Buffer, n *xmlquery.Node) {
	switch n.Type {
	case xmlquery.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(b, c)
		}
	case xmlquery.DeclarationNode:
		b.WriteString("<?")
		b.WriteString(n.Data)
		for _, a := range n.Attr {
			fmt.Fprintf(b, ` %s="%s"`, attrName(a), escape(a.Value, true))
		}
		b.WriteString("?>")
		if n.NextSibling != nil && n.NextSibling.Type == xmlquery.ElementNode {
			b.WriteString("\r\n")
		}
	case xmlquery.ElementNode:
		name := n.Data
		if n.Prefix != "" {
			name = n.Prefix + ":" + n.Data
		}
		b.WriteByte('<')
		b.WriteString(name)
		for _, a := range n.Attr {
			fmt.Fprintf(b, ` %s="%s"`, attrName(a), escape(a.Value, true))
		}
		if n.FirstChild == nil {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(b, c)
		}
		b.WriteString("</")
		b.WriteString(name)
		b.WriteByte('>')
	case xmlquery.TextNode:
		b.WriteString(escape(n.Data, false))
	case xmlquery.CharDataNode:
		b.WriteString("<![CDATA[")
		b.WriteString(n.Data)
		b.WriteString("]]>")
	case xmlquery.CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.Data)
		b.WriteString("-->")
	case xmlquery.ProcessingInstruction:
		if n.ProcInst != nil {
			fmt.Fprintf(b, "<?%s %s?>", n.ProcInst.Target, n.ProcInst.Inst)
		}
	case xmlquery.NotationNode:
		b.WriteString("<!")
		b.WriteString(n.Data)
		b.WriteString(">")
	}
}

func attrName(a xmlquery.Attr) string {
	switch a.Name.Space {
	case "":
		return a.Name.Local
	case nsXML:
		return "xml:" + a.Name.Local
	case nsW:
		return "w:" + a.Name.Local
	}
	return a.Name.Space + ":" + a.Name.Local
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

func escape(s string, inAttr bool) string {
	if inAttr {
		return attrEscaper.Replace(s)
	}
	return textEscaper.Replace(s)
}
