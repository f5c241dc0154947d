package parser

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hyperjump/docindex/internal/doctree"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

const treeSchemaURL = "https://hyperjump.dev/docindex/tree.schema.json"

//go:embed tree.schema.json
var treeSchemaJSON []byte

var treeSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(treeSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("decode tree schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(treeSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add tree schema: %w", err)
	}
	schema, err := compiler.Compile(treeSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile tree schema: %w", err)
	}
	return schema, nil
})

// TreeParser loads document trees that another toolchain already parsed
// and exported as JSON or YAML. Input is validated against an embedded
// JSON schema before conversion.
type TreeParser struct{}

// NewTreeParser returns a TreeParser.
func NewTreeParser() *TreeParser {
	return &TreeParser{}
}

type treeFile struct {
	FileName string    `json:"fileName"`
	Title    string    `json:"title"`
	Root     *treeNode `json:"root"`
}

type treeNode struct {
	Context      string       `json:"context"`
	Class        string       `json:"class"`
	Level        int          `json:"level"`
	Title        string       `json:"title"`
	Caption      string       `json:"caption"`
	ID           string       `json:"id"`
	Style        string       `json:"style"`
	ContentModel string       `json:"contentModel"`
	Lines        []string     `json:"lines"`
	Blocks       []*treeNode  `json:"blocks"`
	Items        []*treeItem  `json:"items"`
	Entries      []*treeEntry `json:"entries"`
	Rows         *treeRows    `json:"rows"`
	Rendered     string       `json:"rendered"`
}

type treeItem struct {
	Source string      `json:"source"`
	Blocks []*treeNode `json:"blocks"`
}

type treeEntry struct {
	Terms       []*treeItem `json:"terms"`
	Description *treeItem   `json:"description"`
}

type treeRows struct {
	Head [][]string `json:"head"`
	Body [][]string `json:"body"`
	Foot [][]string `json:"foot"`
}

// Parse implements Parser. JSON is tried when src starts with '{';
// anything else is read as YAML.
func (p *TreeParser) Parse(src []byte, fileName string) (*doctree.Document, error) {
	data := bytes.TrimSpace(src)
	if len(data) == 0 || data[0] != '{' {
		var err error
		if data, err = yamlToJSON(src); err != nil {
			return nil, err
		}
	}

	schema, err := treeSchema()
	if err != nil {
		return nil, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("invalid tree at %s: %w", errorLocation(err), err)
	}

	var tf treeFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	name := tf.FileName
	if name == "" {
		name = fileName
	}
	return &doctree.Document{FileName: name, Title: tf.Title, Root: tf.Root.toNode()}, nil
}

func yamlToJSON(src []byte) ([]byte, error) {
	var v interface{}
	if err := yaml.Unmarshal(src, &v); err != nil {
		return nil, fmt.Errorf("decode yaml tree: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("convert yaml tree: %w", err)
	}
	return data, nil
}

// errorLocation returns the instance location of the first leaf cause.
func errorLocation(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return "/"
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return "/" + strings.Join(ve.InstanceLocation, "/")
}

func (n *treeNode) toNode() *doctree.Node {
	if n == nil {
		return nil
	}
	node := &doctree.Node{
		Kind:         doctree.ParseKind(n.Context),
		Context:      n.Context,
		Class:        n.Class,
		Level:        n.Level,
		Title:        n.Title,
		Caption:      n.Caption,
		ID:           n.ID,
		Style:        n.Style,
		ContentModel: doctree.ParseContentModel(n.ContentModel),
		Lines:        n.Lines,
		Blocks:       toNodes(n.Blocks),
		Rendered:     n.Rendered,
	}
	for _, it := range n.Items {
		node.Items = append(node.Items, it.toItem())
	}
	for _, e := range n.Entries {
		entry := &doctree.DescriptionEntry{Description: e.Description.toItem()}
		for _, t := range e.Terms {
			entry.Terms = append(entry.Terms, t.toItem())
		}
		node.Entries = append(node.Entries, entry)
	}
	if n.Rows != nil {
		node.Table = &doctree.Table{
			Header: toRows(n.Rows.Head),
			Body:   toRows(n.Rows.Body),
			Footer: toRows(n.Rows.Foot),
		}
	}
	return node
}

func toNodes(in []*treeNode) []*doctree.Node {
	if len(in) == 0 {
		return nil
	}
	out := make([]*doctree.Node, 0, len(in))
	for _, n := range in {
		out = append(out, n.toNode())
	}
	return out
}

func (it *treeItem) toItem() *doctree.ListItem {
	if it == nil {
		return nil
	}
	return &doctree.ListItem{Source: it.Source, Blocks: toNodes(it.Blocks)}
}

func toRows(in [][]string) []*doctree.Row {
	if in == nil {
		return nil
	}
	rows := make([]*doctree.Row, 0, len(in))
	for _, r := range in {
		row := &doctree.Row{Cells: make([]*doctree.Cell, 0, len(r))}
		for _, src := range r {
			row.Cells = append(row.Cells, &doctree.Cell{Source: src})
		}
		rows = append(rows, row)
	}
	return rows
}
