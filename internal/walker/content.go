package walker

import "github.com/hyperjump/docindex/internal/doctree"

// Extract returns a paragraph-like node's caption, title and raw lines, in
// that order. count is the number of raw lines only, so callers can tell a
// node with body text from one that had just a caption or title.
func Extract(n *doctree.Node) (lines []string, count int) {
	if n.Caption != "" {
		lines = append(lines, n.Caption)
	}
	if n.Title != "" {
		lines = append(lines, n.Title)
	}
	lines = append(lines, n.Lines...)
	return lines, len(n.Lines)
}

// listLines emits each item's source in list order, followed by the text of
// any blocks nested under that item (sublists, continuation paragraphs).
func (s *walkState) listLines(n *doctree.Node, crumbs *Breadcrumb, depth int, attachTo *recordBuilder) ([]string, error) {
	lines := make([]string, 0, len(n.Items))
	for _, item := range n.Items {
		if item == nil {
			continue
		}
		lines = append(lines, item.Source)
		if len(item.Blocks) == 0 {
			continue
		}
		nested, err := s.nested(item.Blocks, crumbs, depth, attachTo)
		if err != nil {
			return nil, err
		}
		lines = append(lines, nested...)
	}
	return lines, nil
}

// tableCells emits every cell of the header, body and footer rows, row-major.
func tableCells(t *doctree.Table) []string {
	if t == nil {
		return nil
	}
	var lines []string
	for _, rows := range [][]*doctree.Row{t.Header, t.Body, t.Footer} {
		for _, row := range rows {
			if row == nil {
				continue
			}
			for _, cell := range row.Cells {
				if cell == nil {
					continue
				}
				lines = append(lines, cell.Source)
			}
		}
	}
	return lines
}
