package resolve

import (
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/chushaku/internal/doctree"
	"github.com/hyperjump/chushaku/internal/textspan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paragraph(texts ...string) *doctree.Paragraph {
	p := doctree.NewParagraph()
	for _, s := range texts {
		p.Nodes = append(p.Nodes, &doctree.Run{Text: s})
	}
	return p
}

func runTexts(p *doctree.Paragraph) []string {
	var out []string
	for _, r := range p.Runs() {
		out = append(out, r.Text)
	}
	return out
}

func spanOf(t *testing.T, text, phrase string) textspan.Span {
	t.Helper()
	i := strings.Index(text, phrase)
	require.GreaterOrEqual(t, i, 0)
	return textspan.Span{Start: i, Length: len(phrase)}
}

func TestResolve_MatchIsWholeRun(t *testing.T) {
	p := paragraph("Watch the ", "Online Video", " now")
	before, after := p.Runs()[0], p.Runs()[2]

	m, err := New(p).Resolve(spanOf(t, p.Text(), "Online Video"))
	require.NoError(t, err)

	assert.Equal(t, "Online Video", m.Text)
	assert.Equal(t, []string{"Watch the ", "Online Video", " now"}, runTexts(p))
	assert.Same(t, before, p.Runs()[0])
	assert.Same(t, after, p.Runs()[2])
}

func TestResolve_MatchStartsMidRun(t *testing.T) {
	p := paragraph("See Online Video here")
	m, err := New(p).Resolve(spanOf(t, p.Text(), "Online Video"))
	require.NoError(t, err)
	assert.Equal(t, "Online Video", m.Text)
	assert.Equal(t, []string{"See ", "Online Video", " here"}, runTexts(p))
}

func TestResolve_MatchEndsAtRunEnd(t *testing.T) {
	p := paragraph("Play ", "Online Video")
	m, err := New(p).Resolve(spanOf(t, p.Text(), "Online Video"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Play ", "Online Video"}, runTexts(p))
	assert.Same(t, m, p.Nodes[len(p.Nodes)-1])
}

func TestResolve_AcrossRuns(t *testing.T) {
	tests := []struct {
		name string
		runs []string
		want []string
	}{
		{
			name: "two runs mid to mid",
			runs: []string{"Watch the On", "line Video now"},
			want: []string{"Watch the ", "Online Video", " now"},
		},
		{
			name: "three runs with whole inner run",
			runs: []string{"Watch the On", "line ", "Video now"},
			want: []string{"Watch the ", "Online Video", " now"},
		},
		{
			name: "starts at run start and ends at run end",
			runs: []string{"Watch the ", "Online", " ", "Video", " now"},
			want: []string{"Watch the ", "Online Video", " now"},
		},
		{
			name: "empty runs inside the match are dropped",
			runs: []string{"Online", "", " Vid", "", "eo"},
			want: []string{"Online Video"},
		},
		{
			name: "ends exactly at terminal run end",
			runs: []string{"Play Onli", "ne Video"},
			want: []string{"Play ", "Online Video"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paragraph(tt.runs...)
			original := p.Text()
			m, err := New(p).Resolve(spanOf(t, original, "Online Video"))
			require.NoError(t, err)
			assert.Equal(t, "Online Video", m.Text)
			assert.True(t, m.Preserve)
			assert.Equal(t, tt.want, runTexts(p))
			assert.Equal(t, original, p.Text())
		})
	}
}

func TestResolve_MatchRunInheritsStartRunProps(t *testing.T) {
	p := doctree.NewParagraph(
		&doctree.Run{Text: "a Onl", Props: "first"},
		&doctree.Run{Text: "ine b", Props: "second"},
	)
	m, err := New(p).Resolve(textspan.Span{Start: 2, Length: 6})
	require.NoError(t, err)
	runs := p.Runs()
	require.Len(t, runs, 3)
	assert.Equal(t, "first", runs[0].Props)
	assert.Equal(t, "first", m.Props)
	assert.Equal(t, "second", runs[2].Props)
}

// Markers inserted around each match between calls must not disturb later spans.
func TestResolve_MultipleSpansWithMarkers(t *testing.T) {
	p := paragraph("ab Onl", "ine Video cd Online ", "Vi", "deo ef online video")
	original := p.Text()
	lower := strings.ToLower(original)

	var spans []textspan.Span
	for off := 0; ; {
		i := strings.Index(lower[off:], "online video")
		if i < 0 {
			break
		}
		spans = append(spans, textspan.Span{Start: off + i, Length: len("online video")})
		off += i + len("online video")
	}
	require.Len(t, spans, 3)

	res := New(p)
	for id, s := range spans {
		m, err := res.Resolve(s)
		require.NoError(t, err)
		assert.Equal(t, original[s.Start:s.End()], m.Text)
		require.NoError(t, p.InsertBefore(&doctree.CommentRangeStart{ID: id}, m))
		end := &doctree.CommentRangeEnd{ID: id}
		require.NoError(t, p.InsertAfter(end, m))
		require.NoError(t, p.InsertAfter(&doctree.CommentReference{ID: id}, end))
	}

	assert.Equal(t, original, p.Text())
	assert.Equal(t, []string{"ab ", "Online Video", " cd ", "Online Video", " ef ", "online video"}, runTexts(p))
}

func TestResolve_Preconditions(t *testing.T) {
	t.Run("zero length", func(t *testing.T) {
		_, err := New(paragraph("abc")).Resolve(textspan.Span{Start: 0, Length: 0})
		assert.True(t, errors.Is(err, doctree.ErrConsistency))
	})
	t.Run("start beyond text", func(t *testing.T) {
		_, err := New(paragraph("abc")).Resolve(textspan.Span{Start: 3, Length: 1})
		assert.True(t, errors.Is(err, doctree.ErrConsistency))
	})
	t.Run("end beyond text", func(t *testing.T) {
		_, err := New(paragraph("ab", "c")).Resolve(textspan.Span{Start: 1, Length: 5})
		assert.True(t, errors.Is(err, doctree.ErrConsistency))
	})
	t.Run("crosses opaque node", func(t *testing.T) {
		p := doctree.NewParagraph(doctree.NewRun("ab"), &doctree.Opaque{Name: "tab"}, doctree.NewRun("cd"))
		_, err := New(p).Resolve(textspan.Span{Start: 1, Length: 2})
		assert.True(t, errors.Is(err, doctree.ErrConsistency))
	})
	t.Run("out of order", func(t *testing.T) {
		res := New(paragraph("abcabc"))
		_, err := res.Resolve(textspan.Span{Start: 3, Length: 3})
		require.NoError(t, err)
		_, err = res.Resolve(textspan.Span{Start: 0, Length: 3})
		assert.True(t, errors.Is(err, doctree.ErrConsistency))
	})
}

func TestResolve_MarksInsideMatchMoveInFront(t *testing.T) {
	bookmark := &doctree.Opaque{Name: "bookmarkStart", Mark: true}
	oldEnd := &doctree.CommentRangeEnd{ID: 9}
	p := doctree.NewParagraph(
		doctree.NewRun("See Onl"),
		bookmark,
		doctree.NewRun("ine Vi"),
		oldEnd,
		doctree.NewRun("deo here"),
	)
	original := p.Text()

	m, err := New(p).Resolve(spanOf(t, original, "Online Video"))
	require.NoError(t, err)
	assert.Equal(t, "Online Video", m.Text)
	assert.Equal(t, original, p.Text())
	assert.Equal(t, []string{"See ", "Online Video", " here"}, runTexts(p))

	i := p.IndexOf(m)
	require.Equal(t, 3, i)
	assert.Same(t, bookmark, p.Nodes[1])
	assert.Same(t, oldEnd, p.Nodes[2])
}

func TestResolve_StaysInsideContainer(t *testing.T) {
	p := doctree.NewParagraph(
		doctree.NewRun("Watch the "),
		&doctree.Run{Text: "Online ", Scope: "hyperlink"},
		&doctree.Run{Text: "Video", Scope: "hyperlink"},
		doctree.NewRun(" now"),
	)
	m, err := New(p).Resolve(textspan.Span{Start: 10, Length: 12})
	require.NoError(t, err)
	assert.Equal(t, "hyperlink", m.Scope)
	assert.Equal(t, []string{"Watch the ", "Online Video", " now"}, runTexts(p))

	p = doctree.NewParagraph(
		doctree.NewRun("Online "),
		&doctree.Run{Text: "Video", Scope: "hyperlink"},
	)
	_, err = New(p).Resolve(textspan.Span{Start: 0, Length: 12})
	assert.True(t, errors.Is(err, doctree.ErrConsistency))
}
