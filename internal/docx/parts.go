package docx

import (
	"path"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// docxDocumentXMLPath is the default path to the main document body.
const docxDocumentXMLPath = "word/document.xml"

// docxMainContentType is the content type of the main document part.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// findMainDocumentPath returns the main document part named in
// [Content_Types].xml, without leading slash, or "" if none is declared.
func findMainDocumentPath(types *xmlquery.Node) string {
	for _, o := range xmlquery.QuerySelectorAll(types, overridesExpr) {
		if ct, _ := attr(o, "", "ContentType"); ct == docxMainContentType {
			name, _ := attr(o, "", "PartName")
			return strings.TrimPrefix(name, "/")
		}
	}
	return ""
}

// addOverride declares partName with contentType unless already present.
func addOverride(types *xmlquery.Node, partName, contentType string) {
	partName = "/" + strings.TrimPrefix(partName, "/")
	for _, o := range xmlquery.QuerySelectorAll(types, overridesExpr) {
		if name, _ := attr(o, "", "PartName"); name == partName {
			return
		}
	}
	root := xmlquery.QuerySelector(types, typesRootExpr)
	if root == nil {
		return
	}
	o := &xmlquery.Node{Type: xmlquery.ElementNode, Data: "Override", NamespaceURI: nsTypes}
	setAttr(o, "", "PartName", partName)
	setAttr(o, "", "ContentType", contentType)
	xmlquery.AddChild(root, o)
}

// relsPath returns the relationships part for the part at name.
func relsPath(name string) string {
	dir, file := path.Split(name)
	return dir + "_rels/" + file + ".rels"
}

// findRelTarget returns the package path of the first relationship of type
// relType, resolved against the directory of the source part.
func findRelTarget(rels *xmlquery.Node, sourcePart, relType string) string {
	for _, r := range xmlquery.QuerySelectorAll(rels, relationshipsExpr) {
		if t, _ := attr(r, "", "Type"); t != relType {
			continue
		}
		target, _ := attr(r, "", "Target")
		if strings.HasPrefix(target, "/") {
			return strings.TrimPrefix(target, "/")
		}
		return path.Join(path.Dir(sourcePart), target)
	}
	return ""
}

// addRelationship appends a relationship with the next free rId and returns that id.
func addRelationship(rels *xmlquery.Node, relType, target string) string {
	highest := 0
	for _, r := range xmlquery.QuerySelectorAll(rels, relationshipsExpr) {
		id, _ := attr(r, "", "Id")
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "rId")); err == nil && n > highest {
			highest = n
		}
	}
	root := xmlquery.QuerySelector(rels, relsRootExpr)
	id := "rId" + strconv.Itoa(highest+1)
	r := &xmlquery.Node{Type: xmlquery.ElementNode, Data: "Relationship", NamespaceURI: nsRels}
	setAttr(r, "", "Id", id)
	setAttr(r, "", "Type", relType)
	setAttr(r, "", "Target", target)
	xmlquery.AddChild(root, r)
	return id
}

const emptyRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`
