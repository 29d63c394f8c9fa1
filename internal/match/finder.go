// Package match finds occurrences of a search phrase in paragraph text.
package match

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/chushaku/internal/textspan"
)

// ErrEmptyPhrase is returned when the search phrase is empty.
var ErrEmptyPhrase = errors.New("search phrase is empty")

// Policy selects how phrase characters are compared with document text.
type Policy int

const (
	// CaseInsensitive compares runes under Unicode simple case folding.
	CaseInsensitive Policy = iota
	// CaseSensitive compares bytes exactly.
	CaseSensitive
)

func (p Policy) String() string {
	if p == CaseSensitive {
		return "case-sensitive"
	}
	return "case-insensitive"
}

// PolicyFor maps the case_sensitive config flag to a Policy.
func PolicyFor(caseSensitive bool) Policy {
	if caseSensitive {
		return CaseSensitive
	}
	return CaseInsensitive
}

// Finder locates non-overlapping occurrences of a phrase.
type Finder struct {
	phrase string
	policy Policy
}

// NewFinder returns a finder for phrase under policy.
func NewFinder(phrase string, policy Policy) (*Finder, error) {
	if phrase == "" {
		return nil, ErrEmptyPhrase
	}
	if !utf8.ValidString(phrase) {
		return nil, fmt.Errorf("search phrase is not valid UTF-8: %q", phrase)
	}
	return &Finder{phrase: phrase, policy: policy}, nil
}

// Phrase returns the search phrase.
func (f *Finder) Phrase() string { return f.phrase }

// Policy returns the comparison policy.
func (f *Finder) Policy() Policy { return f.policy }

// Find returns leftmost-first, non-overlapping spans of the phrase in text,
// in ascending order. Span offsets and lengths are in bytes of text, which may
// differ from the phrase's byte length under case folding.
func (f *Finder) Find(text string) []textspan.Span {
	if f.policy == CaseSensitive {
		return f.findExact(text)
	}
	return f.findFolded(text)
}

// FindIn returns the spans of the phrase in idx's text that do not cross a
// barrier (a non-text node or a container boundary).
func (f *Finder) FindIn(idx *textspan.Index) []textspan.Span {
	spans := f.Find(idx.Text())
	out := spans[:0]
	for _, s := range spans {
		if !idx.Crosses(s) {
			out = append(out, s)
		}
	}
	return out
}

func (f *Finder) findExact(text string) []textspan.Span {
	var spans []textspan.Span
	for off := 0; off < len(text); {
		i := strings.Index(text[off:], f.phrase)
		if i < 0 {
			break
		}
		spans = append(spans, textspan.Span{Start: off + i, Length: len(f.phrase)})
		off += i + len(f.phrase)
	}
	return spans
}

func (f *Finder) findFolded(text string) []textspan.Span {
	var spans []textspan.Span
	for off := 0; off < len(text); {
		if n, ok := foldPrefix(text[off:], f.phrase); ok {
			spans = append(spans, textspan.Span{Start: off, Length: n})
			off += n
			continue
		}
		_, size := utf8.DecodeRuneInString(text[off:])
		off += size
	}
	return spans
}

// foldPrefix reports whether s starts with phrase under simple folding and
// returns the byte length of the matching prefix of s.
func foldPrefix(s, phrase string) (int, bool) {
	n := 0
	for _, want := range phrase {
		if n >= len(s) {
			return 0, false
		}
		got, size := utf8.DecodeRuneInString(s[n:])
		if !equalFold(got, want) {
			return 0, false
		}
		n += size
	}
	return n, true
}

func equalFold(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}
