// Package walker turns a parsed document tree into a tree of index records.
//
// Document, preamble and section nodes become records. Every other node only
// contributes text lines to the nearest enclosing record. The walk is
// depth-first and single-threaded; a Walker may be reused across files but
// not shared between goroutines mid-walk.
package walker

import (
	"errors"
	"fmt"

	"github.com/hyperjump/docindex/internal/anchor"
	"github.com/hyperjump/docindex/internal/doctree"
	"github.com/hyperjump/docindex/internal/fileid"
	"github.com/hyperjump/docindex/internal/models"
	"github.com/hyperjump/docindex/pkg/utils"
	"go.uber.org/zap"
)

const (
	// DefaultMaxDepth bounds structural and container nesting.
	DefaultMaxDepth = 256
	// DefaultPreambleTitle is the record title used for preamble nodes.
	DefaultPreambleTitle = "Preamble"

	maxRenderedLogLen = 200
)

var (
	// ErrTooDeep is returned when a document nests deeper than the configured bound.
	ErrTooDeep = errors.New("document nesting exceeds maximum depth")
	// ErrNotDocument is returned when the tree root is not a document node.
	ErrNotDocument = errors.New("root node is not a document")
)

// Walker converts documents to record trees.
type Walker struct {
	logger        *zap.Logger
	maxDepth      int
	preambleTitle string
}

// Option configures a Walker.
type Option func(*Walker)

// WithLogger sets the logger used for progress and anomaly reports.
func WithLogger(l *zap.Logger) Option {
	return func(w *Walker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithMaxDepth sets the nesting bound. Values <= 0 keep the default.
func WithMaxDepth(n int) Option {
	return func(w *Walker) {
		if n > 0 {
			w.maxDepth = n
		}
	}
}

// WithPreambleTitle overrides the title given to preamble records.
func WithPreambleTitle(title string) Option {
	return func(w *Walker) {
		if title != "" {
			w.preambleTitle = title
		}
	}
}

// New returns a Walker.
func New(opts ...Option) *Walker {
	w := &Walker{
		logger:        zap.NewNop(),
		maxDepth:      DefaultMaxDepth,
		preambleTitle: DefaultPreambleTitle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Result is the output of walking one file.
type Result struct {
	Root      *models.IndexRecord
	Records   int
	Anomalies int
	Kinds     map[string]int // node contexts visited, with counts
}

// Walk builds the record tree for doc. Malformed nodes are logged and
// degraded; only a missing root or excessive nesting fails the walk.
func (w *Walker) Walk(doc *doctree.Document) (*Result, error) {
	if doc == nil || doc.Root == nil {
		return nil, fmt.Errorf("walk: %w", ErrNotDocument)
	}
	if doc.Root.Kind != doctree.KindDocument {
		return nil, fmt.Errorf("walk %s: %w (got %s)", doc.FileName, ErrNotDocument, doc.Root.ContextName())
	}
	s := &walkState{
		w:        w,
		fileName: doc.FileName,
		docTitle: documentTitle(doc),
		asm:      newAssembler(doc.FileName, w.logger),
		kinds:    make(map[string]int),
	}
	s.tally(doc.Root)
	root, err := s.walk(doc.Root, &Breadcrumb{}, 0)
	if err != nil {
		return nil, err
	}
	return &Result{
		Root:      root,
		Records:   root.Count(),
		Anomalies: s.anomalies,
		Kinds:     s.kinds,
	}, nil
}

func documentTitle(doc *doctree.Document) string {
	switch {
	case doc.Title != "":
		return doc.Title
	case doc.Root.Title != "":
		return doc.Root.Title
	default:
		return doc.FileName
	}
}

// walkState holds everything that is mutable while one file is walked.
type walkState struct {
	w         *Walker
	fileName  string
	docTitle  string
	asm       *assembler
	kinds     map[string]int
	anomalies int
}

// walk creates the record for a structural node, indexes its children and
// returns the finished record. The breadcrumb is restored on every return path.
func (s *walkState) walk(n *doctree.Node, crumbs *Breadcrumb, depth int) (*models.IndexRecord, error) {
	if depth > s.w.maxDepth {
		return nil, fmt.Errorf("walk %s at %q: %w (%d)", s.fileName, crumbs.String(), ErrTooDeep, s.w.maxDepth)
	}

	spec := recordSpec{level: n.Level}
	var title string
	switch n.Kind {
	case doctree.KindDocument:
		title = s.docTitle
		spec.id = fileid.DocumentID(s.fileName)
		spec.isRoot = depth == 0
	case doctree.KindPreamble:
		title = s.w.preambleTitle
		spec.id = fileid.PreambleID(s.fileName)
	case doctree.KindSection:
		title = n.Title
		a := anchor.Normalize(n.ID)
		spec.anchor = &a
		spec.id = fileid.SectionID(s.fileName, a)
	default:
		return nil, fmt.Errorf("walk %s: %s is not a structural node", s.fileName, n.ContextName())
	}
	spec.title = title

	crumbs.Push(title)
	defer crumbs.Pop()
	spec.path = crumbs.Snapshot()

	s.w.logger.Debug("looking at",
		zap.String("file", s.fileName),
		zap.String("path", crumbs.String()),
		zap.Int("depth", crumbs.Len()),
	)

	b := s.asm.open(spec)
	lines, err := s.indexChildren(n.Blocks, crumbs, depth, b)
	if err != nil {
		return nil, err
	}
	b.addText(lines...)
	return b.finalize(), nil
}

// indexChildren visits nodes in order. Structural children become records
// attached to attachTo; every other node contributes lines, which are
// returned in encounter order. Returns nil for an empty slice.
func (s *walkState) indexChildren(nodes []*doctree.Node, crumbs *Breadcrumb, depth int, attachTo *recordBuilder) ([]string, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	var lines []string
	for _, n := range nodes {
		if n == nil {
			continue
		}
		s.tally(n)
		switch {
		case n.Kind.IsStructural() && n.Kind != doctree.KindDocument:
			child, err := s.walk(n, crumbs, depth+1)
			if err != nil {
				return nil, err
			}
			attachTo.addChild(child)

		case n.Kind.IsParagraphLike():
			produced, count := Extract(n)
			lines = append(lines, produced...)
			if count > 0 {
				continue
			}
			switch {
			case n.ContentModel == doctree.ContentCompound:
				nested, err := s.nested(n.Blocks, crumbs, depth, attachTo)
				if err != nil {
					return nil, err
				}
				lines = append(lines, nested...)
			case n.ContentModel == doctree.ContentEmpty:
			default:
				s.anomaly("unexpected content model", n)
			}

		case n.Kind == doctree.KindDescriptionList:
			for _, entry := range n.Entries {
				if entry == nil {
					continue
				}
				for _, term := range entry.Terms {
					if term != nil {
						lines = append(lines, term.Source)
					}
				}
				desc := entry.Description
				switch {
				case desc == nil:
				case desc.HasSource():
					lines = append(lines, desc.Source)
				case len(desc.Blocks) > 0:
					nested, err := s.nested(desc.Blocks, crumbs, depth, attachTo)
					if err != nil {
						return nil, err
					}
					lines = append(lines, nested...)
				}
			}

		case n.Kind.IsList():
			items, err := s.listLines(n, crumbs, depth, attachTo)
			if err != nil {
				return nil, err
			}
			lines = append(lines, items...)

		case n.Kind == doctree.KindTable:
			lines = append(lines, tableCells(n.Table)...)

		default:
			s.anomaly("unrecognized node kind", n)
			lines = append(lines, n.Rendered)
		}
	}
	return lines, nil
}

// nested indexes the blocks of a container inline: the container gets no
// record and its descendants' text flattens into the current level.
func (s *walkState) nested(blocks []*doctree.Node, crumbs *Breadcrumb, depth int, attachTo *recordBuilder) ([]string, error) {
	if depth+1 > s.w.maxDepth {
		return nil, fmt.Errorf("walk %s at %q: %w (%d)", s.fileName, crumbs.String(), ErrTooDeep, s.w.maxDepth)
	}
	return s.indexChildren(blocks, crumbs, depth+1, attachTo)
}

func (s *walkState) tally(n *doctree.Node) {
	s.kinds[n.ContextName()]++
}

func (s *walkState) anomaly(msg string, n *doctree.Node) {
	s.anomalies++
	s.w.logger.Warn(msg,
		zap.String("file", s.fileName),
		zap.String("kind", n.ContextName()),
		zap.String("class", n.Class),
		zap.String("content_model", n.ContentModel.String()),
		zap.String("rendered", utils.Truncate(utils.CollapseSpace(n.Rendered), maxRenderedLogLen)),
	)
}
