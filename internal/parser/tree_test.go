package parser

import (
	"testing"

	"github.com/hyperjump/docindex/internal/doctree"
	"github.com/hyperjump/docindex/internal/walker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treeJSON = `{
  "fileName": "refguide.adoc",
  "title": "Reference Guide",
  "root": {
    "context": "document",
    "class": "Document",
    "contentModel": "compound",
    "blocks": [
      {"context": "preamble", "contentModel": "compound", "blocks": [
        {"context": "paragraph", "contentModel": "simple", "lines": ["Welcome."]}
      ]},
      {"context": "section", "class": "Section", "title": "Field Types", "id": "_field_types", "level": 1, "contentModel": "compound", "blocks": [
        {"context": "table", "contentModel": "compound", "rows": {"head": [["Type", "Class"]], "body": [["text", "TextField"]]}},
        {"context": "dlist", "contentModel": "compound", "entries": [
          {"terms": [{"source": "indexed"}], "description": {"source": "Searchable."}}
        ]},
        {"context": "toc", "class": "Block", "rendered": "<div id=\"toc\"></div>"}
      ]}
    ]
  }
}`

const treeYAML = `
title: Notes
root:
  context: document
  contentModel: compound
  blocks:
    - context: ulist
      contentModel: compound
      items:
        - source: alpha
        - source: beta
    - context: admonition
      caption: Tip
      contentModel: simple
      lines: [Use YAML.]
`

func TestTree_JSON(t *testing.T) {
	doc, err := NewTreeParser().Parse([]byte(treeJSON), "refguide.json")
	require.NoError(t, err)
	assert.Equal(t, "refguide.adoc", doc.FileName, "fileName in the tree wins")
	assert.Equal(t, "Reference Guide", doc.Title)

	root := doc.Root
	require.Equal(t, []doctree.Kind{doctree.KindPreamble, doctree.KindSection}, kinds(root.Blocks))
	sec := root.Blocks[1]
	assert.Equal(t, "_field_types", sec.ID)
	require.Equal(t, []doctree.Kind{doctree.KindTable, doctree.KindDescriptionList, doctree.KindUnrecognized}, kinds(sec.Blocks))
	assert.Equal(t, "TextField", sec.Blocks[0].Table.Body[0].Cells[1].Source)
	assert.Nil(t, sec.Blocks[0].Table.Footer)
	assert.Equal(t, "toc", sec.Blocks[2].Context)
}

func TestTree_JSONWalk(t *testing.T) {
	doc, err := NewTreeParser().Parse([]byte(treeJSON), "refguide.json")
	require.NoError(t, err)
	res, err := walker.New().Walk(doc)
	require.NoError(t, err)

	sec := res.Root.Children[1]
	assert.Equal(t, "refguide.adoc:#field-types", sec.ID)
	assert.Equal(t, "#field-types", sec.AnchorValue())
	assert.Equal(t, []string{"Type", "Class", "text", "TextField", "indexed", "Searchable.", "<div id=\"toc\"></div>"}, sec.Text)
	assert.Equal(t, 1, res.Anomalies)
}

func TestTree_YAML(t *testing.T) {
	doc, err := NewTreeParser().Parse([]byte(treeYAML), "notes.yaml")
	require.NoError(t, err)
	assert.Equal(t, "notes.yaml", doc.FileName)
	assert.Equal(t, "Notes", doc.Title)
	require.Equal(t, []doctree.Kind{doctree.KindUnorderedList, doctree.KindAdmonition}, kinds(doc.Root.Blocks))
	assert.Equal(t, "beta", doc.Root.Blocks[0].Items[1].Source)

	res, err := walker.New().Walk(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "Tip", "Use YAML."}, res.Root.Text)
}

func TestTree_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing root", `{"title": "x"}`},
		{"root not a document", `{"root": {"context": "section"}}`},
		{"unknown property", `{"root": {"context": "document", "colour": "red"}}`},
		{"bad content model", `{"root": {"context": "document", "contentModel": "weird"}}`},
		{"entry without terms", `{"root": {"context": "document", "blocks": [{"context": "dlist", "entries": [{}]}]}}`},
		{"negative level", "root:\n  context: document\n  level: -1\n"},
		{"not yaml", "root: [unclosed\n"},
	}
	p := NewTreeParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse([]byte(tt.src), "bad.json")
			assert.Error(t, err)
		})
	}
}

func TestErrorLocation(t *testing.T) {
	_, err := NewTreeParser().Parse([]byte(`{"root": {"context": "document", "blocks": [{"context": ""}]}}`), "x.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/root/blocks/0")
}
