// Package docx loads WordprocessingML (.docx) packages into the doctree model
// and writes edited paragraphs and comments back into the package.
package docx

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/hyperjump/chushaku/internal/doctree"
)

// File is an opened .docx package with its main document parsed.
type File struct {
	pkg      *Package
	mainPath string
	root     *xmlquery.Node
	doc      *doctree.Document
	comments *CommentsPart
}

// Open reads and parses the .docx at path.
func Open(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(content)
}

// Parse reads a .docx held in memory.
func Parse(content []byte) (*File, error) {
	pkg, err := ReadPackage(content)
	if err != nil {
		return nil, err
	}
	f := &File{pkg: pkg}

	types, err := f.part(contentTypesPath)
	if err != nil {
		return nil, err
	}
	f.mainPath = findMainDocumentPath(types)
	if f.mainPath == "" {
		f.mainPath = docxDocumentXMLPath
	}

	data, ok := pkg.Part(f.mainPath)
	if !ok {
		return nil, fmt.Errorf("docx: %s not found", f.mainPath)
	}
	if f.root, err = parseXML(f.mainPath, data); err != nil {
		return nil, err
	}
	f.doc = loadDocument(f.root)

	if err := f.loadComments(); err != nil {
		return nil, err
	}
	return f, nil
}

// Document returns the paragraph model of the main document.
func (f *File) Document() *doctree.Document { return f.doc }

// Comments returns the comments store; it exists even when the package has
// no comments part yet.
func (f *File) Comments() *CommentsPart { return f.comments }

// MainPath is the package path of the main document part.
func (f *File) MainPath() string { return f.mainPath }

// Bytes writes modified paragraphs into the main part and returns the package.
func (f *File) Bytes() ([]byte, error) {
	dirty := false
	for _, p := range f.doc.Paragraphs {
		if p.Modified() {
			syncParagraph(p)
			dirty = true
		}
	}
	if dirty {
		f.pkg.SetPart(f.mainPath, serialize(f.root))
	}
	var buf bytes.Buffer
	if _, err := f.pkg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the package to path.
func (f *File) Save(path string) error {
	data, err := f.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (f *File) part(name string) (*xmlquery.Node, error) {
	data, ok := f.pkg.Part(name)
	if !ok {
		return nil, fmt.Errorf("docx: %s not found", name)
	}
	return parseXML(name, data)
}

func (f *File) loadComments() error {
	if data, ok := f.pkg.Part(relsPath(f.mainPath)); ok {
		rels, err := parseXML(relsPath(f.mainPath), data)
		if err != nil {
			return err
		}
		if target := findRelTarget(rels, f.mainPath, relComment); target != "" {
			if content, ok := f.pkg.Part(target); ok {
				f.comments, err = newCommentsPart(f, target, content, true)
				return err
			}
		}
	}
	var err error
	f.comments, err = newCommentsPart(f, path.Join(path.Dir(f.mainPath), "comments.xml"), []byte(emptyComments), false)
	return err
}

// registerComments links the comments part from the main document's
// relationships and declares its content type.
func (f *File) registerComments(name string) error {
	relsName := relsPath(f.mainPath)
	data, ok := f.pkg.Part(relsName)
	if !ok {
		data = []byte(emptyRels)
	}
	rels, err := parseXML(relsName, data)
	if err != nil {
		return err
	}
	target := name
	if dir := path.Dir(f.mainPath); dir != "." {
		target = strings.TrimPrefix(name, dir+"/")
	}
	if findRelTarget(rels, f.mainPath, relComment) == "" {
		addRelationship(rels, relComment, target)
		f.pkg.SetPart(relsName, serialize(rels))
	}

	types, err := f.part(contentTypesPath)
	if err != nil {
		return err
	}
	addOverride(types, name, ctComments)
	f.pkg.SetPart(contentTypesPath, serialize(types))
	return nil
}
