package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/hyperjump/docindex/internal/models"
	"github.com/hyperjump/docindex/internal/walker"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of records staged before a bleve batch is flushed.
const DefaultBatchSize = 500

// ErrIndexClosed is returned by a BleveClient whose index is closed, either
// explicitly or because ClearAll could not recreate it.
var ErrIndexClosed = errors.New("bleve index is closed")

// BleveClient writes records to a local bleve index, one bleve document per
// record. Nesting is kept through parentId and rootId.
type BleveClient struct {
	path      string
	batchSize int
	logger    *zap.Logger
	index     bleve.Index
	batch     *bleve.Batch
	staged    int
}

// bleveDoc is the flattened form of a record. bleve documents do not nest, so
// children are replaced by parentId and rootId links.
type bleveDoc struct {
	ID             string   `json:"id"`
	FileName       string   `json:"fileName"`
	Title          string   `json:"title"`
	Anchor         string   `json:"anchor"`
	Path           []string `json:"path"`
	Breadcrumb     string   `json:"breadcrumb"`
	Level          int      `json:"level"`
	Text           []string `json:"text,omitempty"`
	HasText        bool     `json:"hasText"`
	ParentID       string   `json:"parentId"`
	RootID         string   `json:"rootId"`
	ChildrenCount  int      `json:"childrenCount"`
	IsDocumentRoot bool     `json:"isDocumentRoot"`
}

// NewBleveClient creates or opens a bleve index at path.
func NewBleveClient(path string, batchSize int, logger *zap.Logger) (*BleveClient, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &BleveClient{path: path, batchSize: batchSize, logger: logger}

	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		c.index, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", err)
		}
	} else {
		c.index, err = bleve.New(path, indexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
	}
	c.batch = c.index.NewBatch()
	return c, nil
}

func indexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	for _, f := range []string{"title", "text", "breadcrumb", "path"} {
		doc.AddFieldMappingsAt(f, text)
	}
	keyword := bleve.NewKeywordFieldMapping()
	for _, f := range []string{"id", "fileName", "anchor", "parentId", "rootId"} {
		doc.AddFieldMappingsAt(f, keyword)
	}
	num := bleve.NewNumericFieldMapping()
	doc.AddFieldMappingsAt("level", num)
	doc.AddFieldMappingsAt("childrenCount", num)
	flag := bleve.NewBooleanFieldMapping()
	doc.AddFieldMappingsAt("isDocumentRoot", flag)
	doc.AddFieldMappingsAt("hasText", flag)

	im.AddDocumentMapping("record", doc)
	im.DefaultType = "record"
	im.DefaultMapping = doc
	return im
}

// ClearAll drops the index and recreates it empty. When recreation fails the
// client is left closed and later calls return ErrIndexClosed.
func (c *BleveClient) ClearAll(ctx context.Context) error {
	if c.index != nil {
		err := c.index.Close()
		c.index = nil
		c.batch = nil
		if err != nil {
			return fmt.Errorf("close Bleve index: %w", err)
		}
	}
	if err := os.RemoveAll(c.path); err != nil {
		return fmt.Errorf("remove Bleve index: %w", err)
	}
	index, err := bleve.New(c.path, indexMapping())
	if err != nil {
		return fmt.Errorf("failed to create Bleve index: %w", err)
	}
	c.index = index
	c.batch = index.NewBatch()
	c.staged = 0
	return nil
}

// Submit stages every record of the tree, flushing full batches.
func (c *BleveClient) Submit(ctx context.Context, root *models.IndexRecord) error {
	if c.index == nil {
		return ErrIndexClosed
	}
	for _, d := range flatten(root) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.batch.Index(d.ID, d); err != nil {
			return fmt.Errorf("stage %s: %w", d.ID, err)
		}
		c.staged++
		if c.batch.Size() >= c.batchSize {
			if err := c.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Commit flushes the staged batch.
func (c *BleveClient) Commit(ctx context.Context) error {
	if c.index == nil {
		return ErrIndexClosed
	}
	if err := c.flush(); err != nil {
		return err
	}
	c.logger.Debug("bleve commit", zap.String("path", c.path), zap.Int("records", c.staged))
	return nil
}

func (c *BleveClient) flush() error {
	if c.batch.Size() == 0 {
		return nil
	}
	if err := c.index.Batch(c.batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	c.batch.Reset()
	return nil
}

// DocCount returns the number of records in the index.
func (c *BleveClient) DocCount() (uint64, error) {
	if c.index == nil {
		return 0, ErrIndexClosed
	}
	return c.index.DocCount()
}

// Close closes the index. Staged but uncommitted records are dropped.
// Closing an already closed client is a no-op.
func (c *BleveClient) Close() error {
	if c.index == nil {
		return nil
	}
	err := c.index.Close()
	c.index = nil
	c.batch = nil
	return err
}

func flatten(root *models.IndexRecord) []*bleveDoc {
	var docs []*bleveDoc
	rootID := root.ID
	root.Walk(func(rec, parent *models.IndexRecord) {
		d := &bleveDoc{
			ID:             rec.ID,
			FileName:       rec.FileName,
			Title:          rec.Title,
			Anchor:         rec.AnchorValue(),
			Path:           rec.Path,
			Breadcrumb:     strings.Join(rec.Path, walker.PathSeparator),
			Level:          rec.Level,
			Text:           rec.Text,
			HasText:        rec.HasText,
			RootID:         rootID,
			ChildrenCount:  rec.ChildrenCount,
			IsDocumentRoot: rec.IsDocumentRoot,
		}
		if parent != nil {
			d.ParentID = parent.ID
		}
		docs = append(docs, d)
	})
	return docs
}
