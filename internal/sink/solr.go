package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/docindex/internal/models"
	solr "github.com/stevenferrer/solr-go"
	"go.uber.org/zap"
)

// DefaultSolrTimeout bounds each request to Solr.
const DefaultSolrTimeout = 30 * time.Second

// SolrClient posts record trees to a Solr collection through the JSON update
// API. Children stay nested under "children".
type SolrClient struct {
	client     *solr.JSONClient
	collection string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewSolrClient returns a client for collection on the Solr server at baseURL
// (for example http://localhost:8983). A trailing /solr path is accepted.
func NewSolrClient(baseURL, collection string, timeout time.Duration, logger *zap.Logger) *SolrClient {
	if timeout <= 0 {
		timeout = DefaultSolrTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/solr")
	return &SolrClient{
		client:     solr.NewJSONClient(base),
		collection: collection,
		timeout:    timeout,
		logger:     logger,
	}
}

// ClearAll deletes every document in the collection and commits the delete.
func (c *SolrClient) ClearAll(ctx context.Context) error {
	body := map[string]interface{}{
		"delete": map[string]string{"query": "*:*"},
	}
	if err := c.update(ctx, body); err != nil {
		return fmt.Errorf("solr clear: %w", err)
	}
	if err := c.Commit(ctx); err != nil {
		return fmt.Errorf("solr clear: %w", err)
	}
	return nil
}

// Submit posts one nested record tree.
func (c *SolrClient) Submit(ctx context.Context, root *models.IndexRecord) error {
	if err := c.update(ctx, []*models.IndexRecord{root}); err != nil {
		return fmt.Errorf("solr submit %s: %w", root.ID, err)
	}
	return nil
}

// Commit makes all submitted trees visible.
func (c *SolrClient) Commit(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Commit(ctx, c.collection); err != nil {
		return fmt.Errorf("solr commit: %w", err)
	}
	return nil
}

// Close is a no-op; the underlying client holds no per-collection state.
func (c *SolrClient) Close() error {
	return nil
}

func (c *SolrClient) update(ctx context.Context, payload interface{}) error {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	size := buf.Len()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	_, err := c.client.Update(ctx, c.collection, solr.JSON, buf)
	c.logger.Debug("solr update",
		zap.String("collection", c.collection),
		zap.Int("bytes", size),
		zap.Duration("took", time.Since(start)),
		zap.Error(err),
	)
	return err
}
