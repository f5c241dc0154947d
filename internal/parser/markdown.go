package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hyperjump/docindex/internal/anchor"
	"github.com/hyperjump/docindex/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

var (
	admonitionMarker = regexp.MustCompile(`^\[!(NOTE|TIP|IMPORTANT|WARNING|CAUTION)\]\s*$`)
	taskBoxPrefix    = regexp.MustCompile(`^\[[ xX]\]\s*`)
)

// MarkdownParser handles Markdown files using goldmark.
//
// Headings nest into sections by level. A lone leading level-1 heading is
// taken as the document title, the way a structured-text title line is.
type MarkdownParser struct {
	md            goldmark.Markdown
	mangleAnchors bool
}

// MarkdownOption configures a MarkdownParser.
type MarkdownOption func(*MarkdownParser)

// WithMangledAnchors makes heading ids use the underscore-prefixed form
// (getting-started becomes _getting_started), so that records carry the
// same anchors as trees exported with auto-generated ids.
func WithMangledAnchors(on bool) MarkdownOption {
	return func(p *MarkdownParser) {
		p.mangleAnchors = on
	}
}

// NewMarkdownParser returns a MarkdownParser.
func NewMarkdownParser(opts ...MarkdownOption) *MarkdownParser {
	p := &MarkdownParser{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.TaskList, extension.DefinitionList),
			goldmark.WithParserOptions(gmparser.WithAutoHeadingID(), gmparser.WithAttribute()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse implements Parser.
func (p *MarkdownParser) Parse(src []byte, fileName string) (*doctree.Document, error) {
	root := p.md.Parser().Parse(text.NewReader(src))
	c := &mdConverter{p: p, src: src}
	doc := c.document(root, fileName)
	if c.err != nil {
		return nil, c.err
	}
	return doc, nil
}

type mdConverter struct {
	p   *MarkdownParser
	src []byte
	err error
}

func (c *mdConverter) document(md ast.Node, fileName string) *doctree.Document {
	title := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	first := md.FirstChild()
	offset := 0
	if h, ok := first.(*ast.Heading); ok && h.Level == 1 && countTopHeadings(md, 1) == 1 {
		title = c.inlineText(h)
		first = first.NextSibling()
		offset = 1
	}

	root := &doctree.Node{
		Kind:         doctree.KindDocument,
		Context:      "document",
		Class:        "Document",
		Title:        title,
		ContentModel: doctree.ContentCompound,
	}

	type frame struct {
		node  *doctree.Node
		level int
	}
	stack := []frame{{node: root, level: 0}}
	var preamble []*doctree.Node
	sawSection := false

	for n := first; n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			level := h.Level - offset
			sec := c.section(h, level)
			for len(stack) > 1 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			parent := stack[len(stack)-1].node
			parent.Blocks = append(parent.Blocks, sec)
			stack = append(stack, frame{node: sec, level: level})
			sawSection = true
			continue
		}
		block := c.block(n)
		if !sawSection {
			preamble = append(preamble, block)
			continue
		}
		top := stack[len(stack)-1].node
		top.Blocks = append(top.Blocks, block)
	}

	switch {
	case !sawSection:
		root.Blocks = preamble
	case len(preamble) > 0:
		pre := &doctree.Node{
			Kind:         doctree.KindPreamble,
			Context:      "preamble",
			Class:        "Block",
			ContentModel: doctree.ContentCompound,
			Blocks:       preamble,
		}
		root.Blocks = append([]*doctree.Node{pre}, root.Blocks...)
	}

	return &doctree.Document{FileName: fileName, Title: title, Root: root}
}

func countTopHeadings(md ast.Node, level int) int {
	count := 0
	for n := md.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == level {
			count++
		}
	}
	return count
}

func (c *mdConverter) section(h *ast.Heading, level int) *doctree.Node {
	var id string
	if v, ok := h.AttributeString("id"); ok {
		switch v := v.(type) {
		case []byte:
			id = string(v)
		case string:
			id = v
		}
	}
	if c.p.mangleAnchors && id != "" {
		id = anchor.Mangle(id)
	}
	return &doctree.Node{
		Kind:         doctree.KindSection,
		Context:      "section",
		Class:        "Section",
		Level:        level,
		Title:        c.inlineText(h),
		ID:           id,
		ContentModel: doctree.ContentCompound,
	}
}

func (c *mdConverter) block(n ast.Node) *doctree.Node {
	switch n := n.(type) {
	case *ast.Paragraph:
		if img := soleImage(n); img != nil {
			return c.image(img)
		}
		return c.linesNode(doctree.KindParagraph, "Block", c.textLines(n), doctree.ContentSimple)
	case *ast.TextBlock:
		return c.linesNode(doctree.KindParagraph, "Block", c.textLines(n), doctree.ContentSimple)
	case *ast.FencedCodeBlock:
		node := c.linesNode(doctree.KindListing, "Block", c.lines(n), doctree.ContentVerbatim)
		node.Style = string(n.Language(c.src))
		return node
	case *ast.CodeBlock:
		return c.linesNode(doctree.KindLiteral, "Block", c.lines(n), doctree.ContentVerbatim)
	case *ast.HTMLBlock:
		lines := c.lines(n)
		if n.HasClosure() {
			lines = append(lines, trimEOL(n.ClosureLine.Value(c.src)))
		}
		return c.linesNode(doctree.KindPass, "Block", lines, doctree.ContentRaw)
	case *ast.ThematicBreak:
		return &doctree.Node{Kind: doctree.KindThematicBreak, Context: "thematic_break", Class: "Block", ContentModel: doctree.ContentEmpty}
	case *ast.Blockquote:
		return c.blockquote(n)
	case *ast.List:
		return c.list(n)
	case *extast.Table:
		return c.table(n)
	case *extast.DefinitionList:
		return c.dlist(n)
	default:
		return c.unrecognized(n)
	}
}

// linesNode builds a line-based node. A node without lines gets the empty
// content model.
func (c *mdConverter) linesNode(kind doctree.Kind, class string, lines []string, model doctree.ContentModel) *doctree.Node {
	if len(lines) == 0 {
		model = doctree.ContentEmpty
	}
	return &doctree.Node{Kind: kind, Context: kind.String(), Class: class, ContentModel: model, Lines: lines}
}

func (c *mdConverter) image(img *ast.Image) *doctree.Node {
	title := string(img.Title)
	if title == "" {
		title = c.inlineText(img)
	}
	return &doctree.Node{
		Kind:         doctree.KindImage,
		Context:      "image",
		Class:        "Block",
		Title:        title,
		Style:        string(img.Destination),
		ContentModel: doctree.ContentEmpty,
	}
}

func soleImage(p *ast.Paragraph) *ast.Image {
	if p.ChildCount() != 1 {
		return nil
	}
	img, _ := p.FirstChild().(*ast.Image)
	return img
}

// blockquote maps a quote to a quote block, or to an admonition when its
// first line is a [!NOTE]-style marker.
func (c *mdConverter) blockquote(q *ast.Blockquote) *doctree.Node {
	var blocks []*doctree.Node
	var caption string
	first := q.FirstChild()
	if p, ok := first.(*ast.Paragraph); ok {
		lines := c.textLines(p)
		if len(lines) > 0 {
			if m := admonitionMarker.FindStringSubmatch(lines[0]); m != nil {
				caption = m[1][:1] + strings.ToLower(m[1][1:])
				if len(lines) > 1 {
					blocks = append(blocks, c.linesNode(doctree.KindParagraph, "Block", lines[1:], doctree.ContentSimple))
				}
				first = first.NextSibling()
			}
		}
	}
	for n := first; n != nil; n = n.NextSibling() {
		blocks = append(blocks, c.block(n))
	}
	if caption != "" {
		return &doctree.Node{
			Kind:         doctree.KindAdmonition,
			Context:      "admonition",
			Class:        "Block",
			Caption:      caption,
			Style:        strings.ToUpper(caption),
			ContentModel: doctree.ContentCompound,
			Blocks:       blocks,
		}
	}
	return &doctree.Node{Kind: doctree.KindQuote, Context: "quote", Class: "Block", ContentModel: doctree.ContentCompound, Blocks: blocks}
}

func (c *mdConverter) list(l *ast.List) *doctree.Node {
	node := &doctree.Node{Kind: doctree.KindUnorderedList, Class: "List", ContentModel: doctree.ContentCompound}
	if l.IsOrdered() {
		node.Kind = doctree.KindOrderedList
	}
	checklist := false
	for it := l.FirstChild(); it != nil; it = it.NextSibling() {
		item := &doctree.ListItem{}
		first := it.FirstChild()
		if isTextual(first) {
			if _, ok := first.FirstChild().(*extast.TaskCheckBox); ok {
				checklist = true
			}
			item.Source = taskBoxPrefix.ReplaceAllString(strings.Join(c.textLines(first), "\n"), "")
			first = first.NextSibling()
		}
		for b := first; b != nil; b = b.NextSibling() {
			item.Blocks = append(item.Blocks, c.block(b))
		}
		node.Items = append(node.Items, item)
	}
	if checklist && !l.IsOrdered() {
		node.Kind = doctree.KindChecklist
	}
	node.Context = node.Kind.String()
	return node
}

func isTextual(n ast.Node) bool {
	switch n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return true
	}
	return false
}

func (c *mdConverter) table(t *extast.Table) *doctree.Node {
	tbl := &doctree.Table{}
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		row := &doctree.Row{}
		for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
			row.Cells = append(row.Cells, &doctree.Cell{Source: c.inlineText(cell)})
		}
		if _, ok := r.(*extast.TableHeader); ok {
			tbl.Header = append(tbl.Header, row)
		} else {
			tbl.Body = append(tbl.Body, row)
		}
	}
	return &doctree.Node{Kind: doctree.KindTable, Context: "table", Class: "Table", ContentModel: doctree.ContentCompound, Table: tbl}
}

// dlist groups consecutive terms with the description that follows them.
func (c *mdConverter) dlist(dl *extast.DefinitionList) *doctree.Node {
	node := &doctree.Node{Kind: doctree.KindDescriptionList, Context: "dlist", Class: "List", ContentModel: doctree.ContentCompound}
	var entry *doctree.DescriptionEntry
	for ch := dl.FirstChild(); ch != nil; ch = ch.NextSibling() {
		switch ch := ch.(type) {
		case *extast.DefinitionTerm:
			if entry == nil || entry.Description != nil {
				entry = &doctree.DescriptionEntry{}
				node.Entries = append(node.Entries, entry)
			}
			entry.Terms = append(entry.Terms, &doctree.ListItem{Source: c.inlineText(ch)})
		case *extast.DefinitionDescription:
			if entry == nil || entry.Description != nil {
				entry = &doctree.DescriptionEntry{}
				node.Entries = append(node.Entries, entry)
			}
			entry.Description = c.description(ch)
		}
	}
	return node
}

// description keeps a single text block as the item source. Anything richer
// is kept as blocks so no text is lost.
func (c *mdConverter) description(d *extast.DefinitionDescription) *doctree.ListItem {
	item := &doctree.ListItem{}
	first := d.FirstChild()
	if isTextual(first) && first.NextSibling() == nil {
		item.Source = strings.Join(c.textLines(first), "\n")
		return item
	}
	for b := first; b != nil; b = b.NextSibling() {
		item.Blocks = append(item.Blocks, c.block(b))
	}
	return item
}

func (c *mdConverter) unrecognized(n ast.Node) *doctree.Node {
	var buf bytes.Buffer
	if err := c.p.md.Renderer().Render(&buf, c.src, n); err != nil && c.err == nil {
		c.err = fmt.Errorf("render %s: %w", n.Kind(), err)
	}
	return &doctree.Node{
		Kind:     doctree.KindUnrecognized,
		Context:  strings.ToLower(n.Kind().String()),
		Class:    fmt.Sprintf("%T", n),
		Rendered: strings.TrimSpace(buf.String()),
	}
}

// lines returns the raw source lines of a block without line endings.
func (c *mdConverter) lines(n ast.Node) []string {
	segs := n.Lines()
	out := make([]string, 0, segs.Len())
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		out = append(out, trimEOL(seg.Value(c.src)))
	}
	return out
}

// textLines is lines with surrounding blanks removed, for paragraph text
// where indentation carries no meaning.
func (c *mdConverter) textLines(n ast.Node) []string {
	lines := c.lines(n)
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

func trimEOL(b []byte) string {
	return strings.TrimRight(string(b), "\r\n")
}

// inlineText flattens the inline children of n to plain text.
func (c *mdConverter) inlineText(n ast.Node) string {
	var buf bytes.Buffer
	c.writeInline(&buf, n)
	return strings.TrimSpace(buf.String())
}

func (c *mdConverter) writeInline(buf *bytes.Buffer, n ast.Node) {
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		switch ch := ch.(type) {
		case *ast.Text:
			buf.Write(ch.Segment.Value(c.src))
			if ch.SoftLineBreak() || ch.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(ch.Value)
		case *ast.AutoLink:
			buf.Write(ch.Label(c.src))
		default:
			c.writeInline(buf, ch)
		}
	}
}
