package walker

import (
	"errors"
	"testing"

	"github.com/hyperjump/docindex/internal/doctree"
	"github.com/hyperjump/docindex/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func para(lines ...string) *doctree.Node {
	return &doctree.Node{Kind: doctree.KindParagraph, ContentModel: doctree.ContentSimple, Lines: lines}
}

func section(title, id string, level int, blocks ...*doctree.Node) *doctree.Node {
	return &doctree.Node{Kind: doctree.KindSection, Title: title, ID: id, Level: level, ContentModel: doctree.ContentCompound, Blocks: blocks}
}

func document(file, title string, blocks ...*doctree.Node) *doctree.Document {
	return &doctree.Document{
		FileName: file,
		Title:    title,
		Root:     &doctree.Node{Kind: doctree.KindDocument, ContentModel: doctree.ContentCompound, Blocks: blocks},
	}
}

func walkDoc(t *testing.T, doc *doctree.Document, opts ...Option) *Result {
	t.Helper()
	res, err := New(opts...).Walk(doc)
	require.NoError(t, err)
	require.NotNil(t, res.Root)
	return res
}

// checkInvariants asserts the record-tree invariants on every record.
func checkInvariants(t *testing.T, root *models.IndexRecord) {
	t.Helper()
	ids := map[string]bool{}
	root.Walk(func(rec, parent *models.IndexRecord) {
		assert.False(t, ids[rec.ID], "duplicate id %s", rec.ID)
		ids[rec.ID] = true
		assert.Equal(t, len(rec.Children), rec.ChildrenCount, "childrenCount of %s", rec.ID)
		assert.Equal(t, len(rec.Text) > 0, rec.HasText, "hasText of %s", rec.ID)
		if parent == nil {
			assert.True(t, rec.IsDocumentRoot)
			assert.Len(t, rec.Path, 1)
			return
		}
		assert.False(t, rec.IsDocumentRoot, "only the root is a document root")
		assert.Equal(t, append(append([]string{}, parent.Path...), rec.Title), rec.Path, "path of %s", rec.ID)
	})
}

func TestWalk_OneSectionOneParagraph(t *testing.T) {
	doc := document("guide.adoc", "Guide",
		section("Install", "_install", 1, para("first line", "second line")),
	)
	res := walkDoc(t, doc)

	root := res.Root
	assert.Equal(t, "guide.adoc:##DOC", root.ID)
	assert.Equal(t, []string{"Guide"}, root.Path)
	assert.True(t, root.IsDocumentRoot)
	assert.Nil(t, root.Anchor)
	assert.False(t, root.HasText)
	require.Equal(t, 1, root.ChildrenCount)

	sec := root.Children[0]
	assert.Equal(t, "guide.adoc:#install", sec.ID)
	require.NotNil(t, sec.Anchor)
	assert.Equal(t, "#install", *sec.Anchor)
	assert.Equal(t, []string{"Guide", "Install"}, sec.Path)
	assert.Equal(t, 1, sec.Level)
	assert.True(t, sec.HasText)
	assert.Equal(t, []string{"first line", "second line"}, sec.Text)
	assert.Equal(t, 0, sec.ChildrenCount)
	assert.Equal(t, 2, res.Records)
	checkInvariants(t, root)
}

func TestWalk_NoSectionsNoPreamble(t *testing.T) {
	doc := document("notes.md", "Notes", para("only", "body"))
	res := walkDoc(t, doc)

	root := res.Root
	assert.True(t, root.IsDocumentRoot)
	assert.True(t, root.HasText)
	assert.Equal(t, []string{"only", "body"}, root.Text)
	assert.Equal(t, 0, root.ChildrenCount)
	assert.Empty(t, root.Children)
	assert.Equal(t, 1, res.Records)
	checkInvariants(t, root)
}

func TestWalk_PreambleGetsOwnRecord(t *testing.T) {
	preamble := &doctree.Node{Kind: doctree.KindPreamble, ContentModel: doctree.ContentCompound, Blocks: []*doctree.Node{para("intro")}}
	doc := document("a.adoc", "A", preamble, section("One", "_one", 1, para("x")))
	res := walkDoc(t, doc)

	root := res.Root
	require.Equal(t, 2, root.ChildrenCount)
	pre := root.Children[0]
	assert.Equal(t, "a.adoc:##PREAMBLE", pre.ID)
	assert.Equal(t, "Preamble", pre.Title)
	assert.Equal(t, []string{"A", "Preamble"}, pre.Path)
	assert.Nil(t, pre.Anchor)
	assert.Equal(t, []string{"intro"}, pre.Text)
	assert.Equal(t, "a.adoc:#one", root.Children[1].ID)
	checkInvariants(t, root)
}

func TestWalk_DocumentLevelContentStaysOnDocument(t *testing.T) {
	doc := document("a.adoc", "A", para("loose"), section("S", "s", 1, para("inner")))
	res := walkDoc(t, doc)
	assert.Equal(t, []string{"loose"}, res.Root.Text)
	assert.Equal(t, []string{"inner"}, res.Root.Children[0].Text)
}

func TestWalk_PreambleTitleOption(t *testing.T) {
	preamble := &doctree.Node{Kind: doctree.KindPreamble, Blocks: []*doctree.Node{para("intro")}}
	res := walkDoc(t, document("a.adoc", "A", preamble), WithPreambleTitle("Overview"))
	assert.Equal(t, "Overview", res.Root.Children[0].Title)
}

func TestWalk_DocumentTitleFallbacks(t *testing.T) {
	doc := document("a.adoc", "", para("x"))
	doc.Root.Title = "From Root"
	assert.Equal(t, []string{"From Root"}, walkDoc(t, doc).Root.Path)

	doc = document("b.adoc", "", para("x"))
	assert.Equal(t, []string{"b.adoc"}, walkDoc(t, doc).Root.Path)
}

func TestWalk_DeepNestingKeepsInvariantsAndBreadcrumb(t *testing.T) {
	inner := section("L5", "_l5", 5, para("deep"))
	for i := 4; i >= 1; i-- {
		inner = section("L"+string(rune('0'+i)), "_l"+string(rune('0'+i)), i, para("text"), inner)
	}
	doc := document("deep.adoc", "Deep", inner, section("Sibling", "sibling", 1))
	res := walkDoc(t, doc)
	checkInvariants(t, res.Root)
	assert.Equal(t, 7, res.Records)

	rec := res.Root
	for rec.ChildrenCount > 0 {
		rec = rec.Children[0]
	}
	assert.Equal(t, []string{"Deep", "L1", "L2", "L3", "L4", "L5"}, rec.Path)
	assert.Equal(t, []string{"Deep", "Sibling"}, res.Root.Children[1].Path)
}

func TestWalk_BreadcrumbRestored(t *testing.T) {
	s := &walkState{
		w:        New(),
		fileName: "f.adoc",
		docTitle: "F",
		asm:      newAssembler("f.adoc", zap.NewNop()),
		kinds:    map[string]int{},
	}
	crumbs := &Breadcrumb{}
	crumbs.Push("Outer")
	crumbs.Push("Middle")
	before := crumbs.Snapshot()

	n := section("A", "a", 1, section("B", "b", 2, section("C", "c", 3, para("x"))))
	_, err := s.walk(n, crumbs, 1)
	require.NoError(t, err)
	assert.Equal(t, before, crumbs.Snapshot())

	// Error path restores too.
	s.w = New(WithMaxDepth(2))
	_, err = s.walk(n, crumbs, 1)
	require.ErrorIs(t, err, ErrTooDeep)
	assert.Equal(t, before, crumbs.Snapshot())
}

func TestWalk_MaxDepth(t *testing.T) {
	doc := document("d.adoc", "D", section("1", "a", 1, section("2", "b", 2, section("3", "c", 3))))
	_, err := New(WithMaxDepth(2)).Walk(doc)
	assert.True(t, errors.Is(err, ErrTooDeep))

	_, err = New(WithMaxDepth(3)).Walk(doc)
	assert.NoError(t, err)
}

func TestWalk_RejectsNonDocumentRoot(t *testing.T) {
	_, err := New().Walk(&doctree.Document{FileName: "x", Root: para("x")})
	assert.ErrorIs(t, err, ErrNotDocument)
	_, err = New().Walk(nil)
	assert.ErrorIs(t, err, ErrNotDocument)
}

func TestWalk_DuplicateAnchorsGetUniqueIDs(t *testing.T) {
	doc := document("dup.adoc", "Dup",
		section("Options", "_options", 1),
		section("Options", "_options", 1),
		section("Options", "_options", 1),
	)
	res := walkDoc(t, doc)
	ids := []string{res.Root.Children[0].ID, res.Root.Children[1].ID, res.Root.Children[2].ID}
	assert.Equal(t, []string{"dup.adoc:#options", "dup.adoc:#options~2", "dup.adoc:#options~3"}, ids)
	checkInvariants(t, res.Root)
}

func TestWalk_UnmangledAnchorPassesThrough(t *testing.T) {
	res := walkDoc(t, document("a.adoc", "A", section("Custom", "my-anchor", 1)))
	assert.Equal(t, "a.adoc:my-anchor", res.Root.Children[0].ID)
	assert.Equal(t, "my-anchor", res.Root.Children[0].AnchorValue())
}

func TestWalk_UnrecognizedKindEmitsRenderedForm(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	unknown := &doctree.Node{Kind: doctree.KindUnrecognized, Context: "toc", Class: "Block", Rendered: "<div id=\"toc\"></div>"}
	res := walkDoc(t, document("u.adoc", "U", unknown), WithLogger(zap.New(core)))

	assert.Equal(t, []string{"<div id=\"toc\"></div>"}, res.Root.Text)
	assert.Equal(t, 1, res.Anomalies)
	require.Equal(t, 1, logs.FilterMessage("unrecognized node kind").Len())
	entry := logs.FilterMessage("unrecognized node kind").All()[0]
	assert.Equal(t, "toc", entry.ContextMap()["kind"])
	assert.Equal(t, "Block", entry.ContextMap()["class"])
}

func TestWalk_KindTally(t *testing.T) {
	doc := document("k.adoc", "K", para("a"), section("S", "s", 1, para("b"), &doctree.Node{Kind: doctree.KindTable, Table: &doctree.Table{}}))
	res := walkDoc(t, doc)
	assert.Equal(t, map[string]int{"document": 1, "paragraph": 2, "section": 1, "table": 1}, res.Kinds)
}

func TestWalk_NestedDocumentIsNotARecord(t *testing.T) {
	inner := &doctree.Node{Kind: doctree.KindDocument, Rendered: "<div>inner</div>"}
	res := walkDoc(t, document("n.adoc", "N", inner))
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, 1, res.Anomalies)
	assert.Equal(t, []string{"<div>inner</div>"}, res.Root.Text)
}

func TestWalk_ProgressLogCarriesDepth(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	doc := document("d.adoc", "D", section("A", "a", 1, section("B", "b", 2)))
	walkDoc(t, doc, WithLogger(zap.New(core)))

	entries := logs.FilterMessage("looking at").All()
	require.Len(t, entries, 3)
	var depths []int64
	for _, e := range entries {
		depths = append(depths, e.ContextMap()["depth"].(int64))
	}
	assert.Equal(t, []int64{1, 2, 3}, depths)
}
