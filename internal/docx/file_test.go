package docx

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/chushaku/internal/annotate"
	"github.com/hyperjump/chushaku/internal/comments"
	"github.com/hyperjump/chushaku/internal/config"
	"github.com/hyperjump/chushaku/internal/doctree"
	"github.com/hyperjump/chushaku/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`</Relationships>`

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p w:rsidR="00A1"><w:pPr><w:jc w:val="left"/></w:pPr><w:r><w:rPr><w:b/></w:rPr><w:t>Watch the Online Video now</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t xml:space="preserve">Online </w:t></w:r><w:proofErr w:type="spellStart"/><w:r><w:rPr><w:i/></w:rPr><w:t>Video</w:t></w:r><w:proofErr w:type="spellEnd"/></w:p>` +
	`<w:p><w:r><w:t xml:space="preserve">Online </w:t></w:r><w:r><w:tab/></w:r><w:r><w:t>Video &amp; more</w:t></w:r></w:p>` +
	`</w:body></w:document>`

const commentsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:comments xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:comment w:id="5" w:author="Editor" w:initials="ED" w:date="2025-01-02T03:04:05Z"><w:p><w:r><w:t>Earlier note</w:t></w:r></w:p></w:comment>` +
	`</w:comments>`

type entry struct{ name, body string }

func buildDocx(t *testing.T, parts ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func basicDocx(t *testing.T) []byte {
	return buildDocx(t,
		entry{contentTypesPath, contentTypesXML},
		entry{"word/_rels/document.xml.rels", documentRelsXML},
		entry{"word/document.xml", documentXML},
	)
}

func annotateFile(t *testing.T, f *File, phrase string) int {
	t.Helper()
	finder, err := match.NewFinder(phrase, match.CaseInsensitive)
	require.NoError(t, err)
	cfg := &config.AnnotateConfig{Author: "Chushaku", Initials: "CK", BodyTemplate: "Found {phrase}"}
	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	found, err := annotate.New(finder, f.Comments(), cfg, annotate.WithClock(func() time.Time { return now })).Document(f.Document())
	require.NoError(t, err)
	return len(found)
}

func partString(t *testing.T, content []byte, name string) string {
	t.Helper()
	pkg, err := ReadPackage(content)
	require.NoError(t, err)
	data, ok := pkg.Part(name)
	require.True(t, ok, "part %s missing", name)
	return string(data)
}

func TestParse_LoadsParagraphModel(t *testing.T) {
	f, err := Parse(basicDocx(t))
	require.NoError(t, err)
	assert.Equal(t, "word/document.xml", f.MainPath())

	doc := f.Document()
	require.Len(t, doc.Paragraphs, 3)
	assert.Equal(t, "Watch the Online Video now", doc.Paragraphs[0].Text())
	assert.Equal(t, "Online Video", doc.Paragraphs[1].Text())
	assert.Equal(t, "Online Video & more", doc.Paragraphs[2].Text())

	first := doc.Paragraphs[0]
	require.Len(t, first.Nodes, 2)
	assert.Equal(t, "opaque:pPr", first.Nodes[0].Kind())
	run := first.Nodes[1].(*doctree.Run)
	assert.False(t, run.Preserve)
	assert.NotNil(t, run.Props)

	second := doc.Paragraphs[1]
	require.Len(t, second.Nodes, 2, "spell-check marks are not modelled")
	assert.True(t, second.Nodes[0].(*doctree.Run).Preserve)

	third := doc.Paragraphs[2]
	require.Len(t, third.Nodes, 3)
	assert.Equal(t, "opaque:r", third.Nodes[1].Kind())

	entries, err := f.Comments().Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBytes_UnmodifiedDocumentKeepsParts(t *testing.T) {
	f, err := Parse(basicDocx(t))
	require.NoError(t, err)
	assert.Zero(t, annotateFile(t, f, "absent phrase"))

	out, err := f.Bytes()
	require.NoError(t, err)
	assert.Equal(t, documentXML, partString(t, out, "word/document.xml"))
	pkg, err := ReadPackage(out)
	require.NoError(t, err)
	assert.Equal(t, []string{contentTypesPath, "word/_rels/document.xml.rels", "word/document.xml"}, pkg.Names())
}

func TestBytes_WritesMarkersAndCreatesCommentsPart(t *testing.T) {
	f, err := Parse(basicDocx(t))
	require.NoError(t, err)
	assert.Equal(t, 2, annotateFile(t, f, "online video"))

	out, err := f.Bytes()
	require.NoError(t, err)

	doc := partString(t, out, "word/document.xml")
	assert.Contains(t, doc, `<w:p w:rsidR="00A1"><w:pPr><w:jc w:val="left"/></w:pPr>`+
		`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">Watch the </w:t></w:r>`+
		`<w:commentRangeStart w:id="1"/>`+
		`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">Online Video</w:t></w:r>`+
		`<w:commentRangeEnd w:id="1"/><w:r><w:commentReference w:id="1"/></w:r>`+
		`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve"> now</w:t></w:r></w:p>`)
	assert.Contains(t, doc, `<w:commentRangeStart w:id="2"/><w:r><w:t xml:space="preserve">Online Video</w:t></w:r><w:commentRangeEnd w:id="2"/>`)
	assert.Contains(t, doc, `<w:t>Video &amp; more</w:t>`, "untouched paragraph keeps its markup")

	assert.Contains(t, partString(t, out, "word/_rels/document.xml.rels"),
		`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments" Target="comments.xml"/>`)
	assert.Contains(t, partString(t, out, contentTypesPath),
		`<Override PartName="/word/comments.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"/>`)

	reopened, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "word/comments.xml", reopened.Comments().Name())
	entries, err := reopened.Comments().Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, comments.Entry{
		ID: 1, Author: "Chushaku", Initials: "CK",
		Date: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
		Body: "Found online video",
	}, entries[0])
	for i, p := range reopened.Document().Paragraphs {
		assert.Equal(t, f.Document().Paragraphs[i].Text(), p.Text())
	}
}

func TestComments_ExistingPartContinuesIDs(t *testing.T) {
	rels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId7" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments" Target="/word/comments.xml"/>` +
		`</Relationships>`
	content := buildDocx(t,
		entry{contentTypesPath, contentTypesXML},
		entry{"word/_rels/document.xml.rels", rels},
		entry{"word/document.xml", documentXML},
		entry{"word/comments.xml", commentsXML},
	)
	f, err := Parse(content)
	require.NoError(t, err)

	existing, err := f.Comments().Entries()
	require.NoError(t, err)
	require.Len(t, existing, 1)
	assert.Equal(t, "Earlier note", existing[0].Body)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), existing[0].Date)

	assert.Equal(t, 1, annotateFile(t, f, "watch"))
	out, err := f.Bytes()
	require.NoError(t, err)
	assert.Equal(t, rels, partString(t, out, "word/_rels/document.xml.rels"))

	reopened, err := Parse(out)
	require.NoError(t, err)
	entries, err := reopened.Comments().Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 6, entries[1].ID)
	assert.Equal(t, "Found watch", entries[1].Body)
}

func TestComments_CorruptIDAndDuplicateAppend(t *testing.T) {
	f, err := Parse(basicDocx(t))
	require.NoError(t, err)
	store := f.Comments()
	require.NoError(t, store.Append(comments.Entry{ID: 3, Body: "two\nlines"}))

	entries, err := store.Entries()
	require.NoError(t, err)
	assert.Equal(t, "two\nlines", entries[0].Body)
	assert.ErrorIs(t, store.Append(comments.Entry{ID: 3}), comments.ErrDuplicateID)

	bad := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:comments xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:comment w:id="x"/></w:comments>`
	corrupt, err := newCommentsPart(f, "word/comments.xml", []byte(bad), true)
	require.NoError(t, err)
	_, err = corrupt.NextID()
	assert.ErrorIs(t, err, comments.ErrCorruptStore)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("not a zip"))
	assert.Error(t, err)

	_, err = Parse(buildDocx(t, entry{contentTypesPath, contentTypesXML}))
	assert.ErrorContains(t, err, "word/document.xml not found")

	_, err = Open(filepath.Join(t.TempDir(), "missing.docx"))
	assert.Error(t, err)
}

func TestSave_WritesFile(t *testing.T) {
	f, err := Parse(basicDocx(t))
	require.NoError(t, err)
	annotateFile(t, f, "video")

	out := filepath.Join(t.TempDir(), "out.docx")
	require.NoError(t, f.Save(out))
	reopened, err := Open(out)
	require.NoError(t, err)
	entries, err := reopened.Comments().Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

const containersXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:r><w:t xml:space="preserve">Watch the </w:t></w:r><w:hyperlink w:anchor="intro" w:history="1"><w:r><w:rPr><w:rStyle w:val="Hyperlink"/></w:rPr><w:t>Online Video</w:t></w:r></w:hyperlink></w:p>` +
	`<w:p><w:ins w:id="7" w:author="Editor" w:date="2025-01-02T03:04:05Z"><w:r><w:t>Online Video inserted</w:t></w:r></w:ins></w:p>` +
	`<w:p><w:r><w:t xml:space="preserve">Play Online </w:t></w:r><w:bookmarkStart w:id="0" w:name="_GoBack"/><w:bookmarkEnd w:id="0"/><w:r><w:t>Video</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t xml:space="preserve">Online </w:t></w:r><w:hyperlink w:anchor="intro"><w:r><w:t>Video</w:t></w:r></w:hyperlink></w:p>` +
	`</w:body></w:document>`

func TestBytes_AnnotatesInsideContainersAndAcrossBookmarks(t *testing.T) {
	f, err := Parse(buildDocx(t,
		entry{contentTypesPath, contentTypesXML},
		entry{"word/_rels/document.xml.rels", documentRelsXML},
		entry{"word/document.xml", containersXML},
	))
	require.NoError(t, err)

	paras := f.Document().Paragraphs
	require.Len(t, paras, 4)
	assert.Equal(t, "Watch the Online Video", paras[0].Text())
	assert.Equal(t, "Online Video inserted", paras[1].Text())
	assert.Equal(t, "Play Online Video", paras[2].Text())

	assert.Equal(t, 3, annotateFile(t, f, "online video"), "a match may not straddle a hyperlink boundary")

	out, err := f.Bytes()
	require.NoError(t, err)
	doc := partString(t, out, "word/document.xml")
	assert.Contains(t, doc, `<w:hyperlink w:anchor="intro" w:history="1">`+
		`<w:commentRangeStart w:id="1"/>`+
		`<w:r><w:rPr><w:rStyle w:val="Hyperlink"/></w:rPr><w:t xml:space="preserve">Online Video</w:t></w:r>`+
		`<w:commentRangeEnd w:id="1"/><w:r><w:commentReference w:id="1"/></w:r></w:hyperlink></w:p>`)
	assert.Contains(t, doc, `<w:ins w:id="7" w:author="Editor" w:date="2025-01-02T03:04:05Z">`+
		`<w:commentRangeStart w:id="2"/><w:r><w:t xml:space="preserve">Online Video</w:t></w:r>`+
		`<w:commentRangeEnd w:id="2"/><w:r><w:commentReference w:id="2"/></w:r>`+
		`<w:r><w:t xml:space="preserve"> inserted</w:t></w:r></w:ins>`)
	assert.Contains(t, doc, `<w:r><w:t xml:space="preserve">Play </w:t></w:r>`+
		`<w:bookmarkStart w:id="0" w:name="_GoBack"/><w:bookmarkEnd w:id="0"/>`+
		`<w:commentRangeStart w:id="3"/><w:r><w:t xml:space="preserve">Online Video</w:t></w:r>`+
		`<w:commentRangeEnd w:id="3"/><w:r><w:commentReference w:id="3"/></w:r></w:p>`)
	assert.Contains(t, doc, `<w:p><w:r><w:t xml:space="preserve">Online </w:t></w:r><w:hyperlink w:anchor="intro"><w:r><w:t>Video</w:t></w:r></w:hyperlink></w:p>`)

	reopened, err := Parse(out)
	require.NoError(t, err)
	for i, p := range reopened.Document().Paragraphs {
		assert.Equal(t, paras[i].Text(), p.Text())
	}
	entries, err := reopened.Comments().Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestComments_DateLayouts(t *testing.T) {
	f, err := Parse(basicDocx(t))
	require.NoError(t, err)
	part := func(date string) *CommentsPart {
		xml := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:comments xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:comment w:id="1" w:date="` + date + `"/></w:comments>`
		c, err := newCommentsPart(f, "word/comments.xml", []byte(xml), true)
		require.NoError(t, err)
		return c
	}

	tests := []struct {
		date string
		want time.Time
	}{
		{"2025-01-02T03:04:05Z", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02T03:04:05+02:00", time.Date(2025, 1, 2, 1, 4, 5, 0, time.UTC)},
		{"2025-01-02T03:04:05", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			entries, err := part(tt.date).Entries()
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.True(t, tt.want.Equal(entries[0].Date), "got %s", entries[0].Date)
		})
	}

	_, err = part("yesterday").NextID()
	assert.ErrorIs(t, err, comments.ErrCorruptStore)
}
