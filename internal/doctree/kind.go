package doctree

// Kind is the semantic role of a node in a parsed document tree.
type Kind int

const (
	KindUnrecognized Kind = iota

	// Structural kinds become their own index records.
	KindDocument
	KindPreamble
	KindSection

	// Paragraph-like kinds carry caption, title and raw lines.
	KindParagraph
	KindListing
	KindAdmonition
	KindImage
	KindQuote
	KindOpen
	KindSidebar
	KindLiteral
	KindExample
	KindPass
	KindThematicBreak

	KindDescriptionList
	KindOrderedList
	KindUnorderedList
	KindChecklist

	KindTable
)

var contextNames = map[Kind]string{
	KindDocument:        "document",
	KindPreamble:        "preamble",
	KindSection:         "section",
	KindParagraph:       "paragraph",
	KindListing:         "listing",
	KindAdmonition:      "admonition",
	KindImage:           "image",
	KindQuote:           "quote",
	KindOpen:            "open",
	KindSidebar:         "sidebar",
	KindLiteral:         "literal",
	KindExample:         "example",
	KindPass:            "pass",
	KindThematicBreak:   "thematic_break",
	KindDescriptionList: "dlist",
	KindOrderedList:     "olist",
	KindUnorderedList:   "ulist",
	KindChecklist:       "checklist",
	KindTable:           "table",
}

var kindsByContext = func() map[string]Kind {
	m := make(map[string]Kind, len(contextNames))
	for k, name := range contextNames {
		m[name] = k
	}
	return m
}()

// ParseKind maps a parser context string to a Kind. Unknown contexts
// yield KindUnrecognized.
func ParseKind(context string) Kind {
	if k, ok := kindsByContext[context]; ok {
		return k
	}
	return KindUnrecognized
}

// String returns the parser context string for k, or "unrecognized".
func (k Kind) String() string {
	if name, ok := contextNames[k]; ok {
		return name
	}
	return "unrecognized"
}

// IsStructural reports whether nodes of this kind get their own record.
func (k Kind) IsStructural() bool {
	switch k {
	case KindDocument, KindPreamble, KindSection:
		return true
	}
	return false
}

// IsParagraphLike reports whether k is handled by the content aggregator.
func (k Kind) IsParagraphLike() bool {
	switch k {
	case KindParagraph, KindListing, KindAdmonition, KindImage, KindQuote,
		KindOpen, KindSidebar, KindLiteral, KindExample, KindPass, KindThematicBreak:
		return true
	}
	return false
}

// IsList reports whether k is an ordered, unordered or checklist list.
func (k Kind) IsList() bool {
	switch k {
	case KindOrderedList, KindUnorderedList, KindChecklist:
		return true
	}
	return false
}

// ContentModel classifies the shape of a node's content.
type ContentModel int

const (
	ContentEmpty ContentModel = iota
	ContentSimple
	ContentCompound
	ContentVerbatim
	ContentRaw
)

var contentModelNames = map[ContentModel]string{
	ContentEmpty:    "empty",
	ContentSimple:   "simple",
	ContentCompound: "compound",
	ContentVerbatim: "verbatim",
	ContentRaw:      "raw",
}

// ParseContentModel maps a content model name to a ContentModel.
// Unknown or blank names are treated as empty.
func ParseContentModel(name string) ContentModel {
	for m, n := range contentModelNames {
		if n == name {
			return m
		}
	}
	return ContentEmpty
}

func (m ContentModel) String() string {
	if n, ok := contentModelNames[m]; ok {
		return n
	}
	return "empty"
}
