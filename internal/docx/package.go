package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"
)

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

type part struct {
	name     string
	data     []byte
	method   uint16
	modified time.Time
}

// Package is the zip container of a .docx file. Parts keep their original
// order; added parts are appended.
type Package struct {
	parts []*part
}

// ReadPackage loads every part of the zip held in content.
func ReadPackage(content []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("docx: not a zip: %w", err)
	}
	pkg := &Package{parts: make([]*part, 0, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("docx: open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("docx: read %s: %w", f.Name, err)
		}
		_ = rc.Close()
		pkg.parts = append(pkg.parts, &part{
			name:     f.Name,
			data:     buf.Bytes(),
			method:   f.Method,
			modified: f.Modified,
		})
	}
	return pkg, nil
}

// Part returns the content of the named part.
func (p *Package) Part(name string) ([]byte, bool) {
	for _, pt := range p.parts {
		if pt.name == name {
			return pt.data, true
		}
	}
	return nil, false
}

// SetPart replaces or adds the named part.
func (p *Package) SetPart(name string, data []byte) {
	for _, pt := range p.parts {
		if pt.name == name {
			pt.data = data
			return
		}
	}
	p.parts = append(p.parts, &part{name: name, data: data, method: zip.Deflate, modified: time.Now()})
}

// Names lists the parts in container order.
func (p *Package) Names() []string {
	names := make([]string, len(p.parts))
	for i, pt := range p.parts {
		names[i] = pt.name
	}
	return names
}

// WriteTo writes the package as a zip archive.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, pt := range p.parts {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: pt.name, Method: pt.method, Modified: pt.modified})
		if err != nil {
			return cw.n, fmt.Errorf("docx: write %s: %w", pt.name, err)
		}
		if _, err := fw.Write(pt.data); err != nil {
			return cw.n, fmt.Errorf("docx: write %s: %w", pt.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("docx: close zip: %w", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
