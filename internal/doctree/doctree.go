// Package doctree defines the parsed document tree handed to the walker by a parser.
package doctree

import "strings"

// Document is the root of one parsed source file.
type Document struct {
	FileName string // base name of the source file
	Title    string // document title
	Root     *Node  // KindDocument node
}

// Node is one block in the parsed tree. Which fields are populated depends on Kind.
type Node struct {
	Kind         Kind
	Context      string // raw context string from the parser
	Class        string // parser-side type name, for diagnostics
	Level        int
	Title        string
	Caption      string
	ID           string // raw identifier, possibly mangled
	Style        string
	ContentModel ContentModel
	Lines        []string
	Blocks       []*Node

	Items   []*ListItem         // olist, ulist, checklist
	Entries []*DescriptionEntry // dlist
	Table   *Table              // table

	// Rendered is the parser's generic rendering of the node, used for
	// kinds the walker does not understand.
	Rendered string
}

// ListItem is an entry of a list, or a term/description of a description list.
type ListItem struct {
	Source string
	Blocks []*Node
}

// HasSource reports whether the item carries inline source text.
func (li *ListItem) HasSource() bool {
	return li != nil && strings.TrimSpace(li.Source) != ""
}

// DescriptionEntry pairs one or more terms with an optional description.
type DescriptionEntry struct {
	Terms       []*ListItem
	Description *ListItem
}

// Table holds row collections. A nil collection means the table has none.
type Table struct {
	Header []*Row
	Body   []*Row
	Footer []*Row
}

// Row is a table row.
type Row struct {
	Cells []*Cell
}

// Cell is a table cell.
type Cell struct {
	Source string
}

// ContextName returns the raw context if set, else the kind's canonical name.
func (n *Node) ContextName() string {
	if n.Context != "" {
		return n.Context
	}
	return n.Kind.String()
}
