// Package models defines the index records and run reports produced by docindex.
package models

// IndexRecord is one searchable unit: a document, its preamble, or a section.
// Records nest; each owns its children exclusively.
type IndexRecord struct {
	ID             string         `json:"id"`
	FileName       string         `json:"fileName"`
	Title          string         `json:"title"`
	Anchor         *string        `json:"anchor,omitempty"`
	Path           []string       `json:"path"`
	Level          int            `json:"level"`
	HasText        bool           `json:"hasText"`
	Text           []string       `json:"text,omitempty"`
	Children       []*IndexRecord `json:"children"`
	ChildrenCount  int            `json:"childrenCount"`
	IsDocumentRoot bool           `json:"isDocumentRoot"`
}

// Walk visits r and its descendants depth-first, parents before children.
// parent is nil for r itself.
func (r *IndexRecord) Walk(fn func(rec, parent *IndexRecord)) {
	r.walk(nil, fn)
}

func (r *IndexRecord) walk(parent *IndexRecord, fn func(rec, parent *IndexRecord)) {
	fn(r, parent)
	for _, c := range r.Children {
		c.walk(r, fn)
	}
}

// Count returns the number of records in the subtree rooted at r.
func (r *IndexRecord) Count() int {
	n := 0
	r.Walk(func(*IndexRecord, *IndexRecord) { n++ })
	return n
}

// AnchorValue returns the anchor or "" when the record has none.
func (r *IndexRecord) AnchorValue() string {
	if r.Anchor == nil {
		return ""
	}
	return *r.Anchor
}
