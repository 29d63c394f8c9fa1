package doctree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParagraph_TextSkipsMarkers(t *testing.T) {
	p := NewParagraph(
		NewRun("Watch "),
		&CommentRangeStart{ID: 1},
		NewRun("this"),
		&CommentRangeEnd{ID: 1},
		&CommentReference{ID: 1},
		&Opaque{Name: "tab"},
		NewRun(" now"),
	)
	assert.Equal(t, "Watch this now", p.Text())
	assert.Len(t, p.Runs(), 3)
	assert.False(t, p.Modified())
}

func TestParagraph_InsertRemoveReplace(t *testing.T) {
	a, b, c := NewRun("a"), NewRun("b"), NewRun("c")
	p := NewParagraph(a, c)

	require.NoError(t, p.InsertBefore(b, c))
	assert.Equal(t, "abc", p.Text())
	assert.True(t, p.Modified())

	start := &CommentRangeStart{ID: 7}
	require.NoError(t, p.InsertAfter(start, a))
	assert.Equal(t, 1, p.IndexOf(start))

	x, y := NewRun("x"), NewRun("y")
	require.NoError(t, p.Replace(b, x, y))
	assert.Equal(t, "axyc", p.Text())

	require.NoError(t, p.Remove(a))
	assert.Equal(t, -1, p.IndexOf(a))
	assert.Equal(t, "xyc", p.Text())
}

func TestParagraph_UnknownSibling(t *testing.T) {
	p := NewParagraph(NewRun("a"))
	stranger := NewRun("z")

	err := p.InsertBefore(NewRun("b"), stranger)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConsistency))

	var ce *ConsistencyError
	require.True(t, errors.As(p.Remove(stranger), &ce))
	assert.Equal(t, "remove", ce.Op)
}

func TestRun_PieceInheritsProps(t *testing.T) {
	r := &Run{Text: "bold text", Props: "rPr", Scope: "hyperlink"}
	piece := r.Piece("bold")
	assert.Equal(t, "bold", piece.Text)
	assert.True(t, piece.Preserve)
	assert.Equal(t, "rPr", piece.Props)
	assert.Equal(t, "hyperlink", piece.Scope)
	assert.Nil(t, piece.Source)
}

func TestZeroWidth(t *testing.T) {
	assert.True(t, ZeroWidth(&CommentRangeStart{ID: 1}))
	assert.True(t, ZeroWidth(&CommentRangeEnd{ID: 1}))
	assert.True(t, ZeroWidth(&Opaque{Name: "bookmarkStart", Mark: true}))
	assert.False(t, ZeroWidth(&CommentReference{ID: 1}))
	assert.False(t, ZeroWidth(&Opaque{Name: "tab"}))
	assert.False(t, ZeroWidth(NewRun("")))
}

func TestMarkerID(t *testing.T) {
	id, ok := MarkerID(&CommentReference{ID: 3})
	assert.True(t, ok)
	assert.Equal(t, 3, id)
	_, ok = MarkerID(NewRun("x"))
	assert.False(t, ok)
}
