package textspan

import (
	"errors"
	"testing"

	"github.com/hyperjump/chushaku/internal/doctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_TextAndLocate(t *testing.T) {
	r0 := doctree.NewRun("Watch the ")
	empty := doctree.NewRun("")
	r1 := doctree.NewRun("Online Video")
	r2 := doctree.NewRun(" now")
	p := doctree.NewParagraph(r0, empty, r1, r2)
	idx := Build(p)

	require.Equal(t, "Watch the Online Video now", idx.Text())
	require.Equal(t, 26, idx.Len())

	tests := []struct {
		name   string
		offset int
		run    *doctree.Run
		node   int
		local  int
	}{
		{"first char", 0, r0, 0, 0},
		{"inside first", 6, r0, 0, 6},
		{"run boundary selects next non-empty run", 10, r1, 2, 0},
		{"inside middle", 17, r1, 2, 7},
		{"last char", 25, r2, 3, 3},
		{"end of text", 26, r2, 3, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := idx.Locate(tt.offset)
			require.NoError(t, err)
			assert.Same(t, tt.run, pos.Run)
			assert.Equal(t, tt.node, pos.Node)
			assert.Equal(t, tt.local, pos.Offset)
		})
	}
}

func TestLocateEnd_PrefersEarlierRun(t *testing.T) {
	r0 := doctree.NewRun("Play ")
	r1 := doctree.NewRun("Online Video")
	idx := Build(doctree.NewParagraph(r0, doctree.NewRun(""), r1))

	pos, err := idx.LocateEnd(5)
	require.NoError(t, err)
	assert.Same(t, r0, pos.Run)
	assert.Equal(t, 5, pos.Offset)

	pos, err = idx.LocateEnd(17)
	require.NoError(t, err)
	assert.Same(t, r1, pos.Run)
	assert.Equal(t, 12, pos.Offset)
}

func TestLocate_OutOfRange(t *testing.T) {
	idx := Build(doctree.NewParagraph(doctree.NewRun("abc")))
	for _, off := range []int{-1, 4} {
		_, err := idx.Locate(off)
		assert.True(t, errors.Is(err, doctree.ErrConsistency), "offset %d", off)
	}
	_, err := idx.LocateEnd(0)
	assert.True(t, errors.Is(err, doctree.ErrConsistency))

	_, err = Build(doctree.NewParagraph()).Locate(0)
	assert.True(t, errors.Is(err, doctree.ErrConsistency))
}

func TestBarriers(t *testing.T) {
	p := doctree.NewParagraph(
		&doctree.Opaque{Name: "pPr"},
		doctree.NewRun("one"),
		&doctree.Opaque{Name: "tab"},
		&doctree.Opaque{Name: "br"},
		doctree.NewRun("two"),
	)
	idx := Build(p)
	assert.Equal(t, []int{0, 3}, idx.Barriers())
	assert.True(t, idx.Crosses(Span{Start: 2, Length: 2}))
	assert.False(t, idx.Crosses(Span{Start: 0, Length: 3}))
	assert.False(t, idx.Crosses(Span{Start: 3, Length: 3}))
}

func TestBarriers_MarksAndScopes(t *testing.T) {
	p := doctree.NewParagraph(
		doctree.NewRun("Onl"),
		&doctree.Opaque{Name: "bookmarkStart", Mark: true},
		&doctree.CommentRangeEnd{ID: 1},
		doctree.NewRun("ine "),
		&doctree.Run{Text: "Video", Scope: "hyperlink"},
		&doctree.Run{Text: "", Scope: "ins"},
		&doctree.Run{Text: " now", Scope: "ins"},
	)
	idx := Build(p)
	assert.Equal(t, "Online Video now", idx.Text())
	assert.Equal(t, []int{7, 12}, idx.Barriers())
	assert.False(t, idx.Crosses(Span{Start: 0, Length: 6}))
	assert.True(t, idx.Crosses(Span{Start: 0, Length: 12}))
	assert.False(t, idx.Crosses(Span{Start: 7, Length: 5}))
	assert.True(t, idx.Crosses(Span{Start: 7, Length: 9}))
}

func TestBuildFrom_NumbersFromBase(t *testing.T) {
	r0 := doctree.NewRun("ab ")
	r1 := doctree.NewRun("cd")
	r2 := doctree.NewRun("ef")
	p := doctree.NewParagraph(r0, &doctree.CommentReference{ID: 1}, r1, r2)
	idx := BuildFrom(p, 2, 3)

	assert.Equal(t, "cdef", idx.Text())
	pos, err := idx.Locate(5)
	require.NoError(t, err)
	assert.Same(t, r2, pos.Run)
	assert.Equal(t, 3, pos.Node)
	assert.Equal(t, 0, pos.Offset)

	pos, err = idx.LocateEnd(5)
	require.NoError(t, err)
	assert.Same(t, r1, pos.Run)
	assert.Equal(t, 2, pos.Offset)

	_, err = idx.Locate(2)
	assert.True(t, errors.Is(err, doctree.ErrConsistency))
	_, err = idx.LocateEnd(8)
	assert.True(t, errors.Is(err, doctree.ErrConsistency))
}
