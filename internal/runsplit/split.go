// Package runsplit carves a sub-range of a run's text out into its own run.
package runsplit

import "github.com/hyperjump/chushaku/internal/doctree"

// Split replaces r in p with up to three runs holding r.Text[:start],
// r.Text[start:start+length], and r.Text[start+length:]. Empty outer pieces are
// omitted; every piece preserves whitespace and inherits r's formatting.
// The middle run is returned.
func Split(p *doctree.Paragraph, r *doctree.Run, start, length int) (*doctree.Run, error) {
	if r.Text == "" {
		return nil, doctree.ErrEmptyRun
	}
	if length < 1 {
		return nil, doctree.Inconsistent("split", "match length %d, want >= 1", length)
	}
	if start < 0 || start+length > len(r.Text) {
		return nil, doctree.Inconsistent("split", "range [%d, %d) outside run of length %d", start, start+length, len(r.Text))
	}

	pieces := make([]doctree.Node, 0, 3)
	if start > 0 {
		pieces = append(pieces, r.Piece(r.Text[:start]))
	}
	middle := r.Piece(r.Text[start : start+length])
	pieces = append(pieces, middle)
	if end := start + length; end < len(r.Text) {
		pieces = append(pieces, r.Piece(r.Text[end:]))
	}
	if err := p.Replace(r, pieces...); err != nil {
		return nil, err
	}
	return middle, nil
}
