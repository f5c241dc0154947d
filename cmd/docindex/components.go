package main

import (
	"fmt"
	"strings"

	"github.com/hyperjump/docindex/internal/config"
	"github.com/hyperjump/docindex/internal/indexer"
	"github.com/hyperjump/docindex/internal/parser"
	"github.com/hyperjump/docindex/internal/sink"
	"github.com/hyperjump/docindex/internal/walker"
	"go.uber.org/zap"
)

// Components holds the long-lived pieces a command wires together.
type Components struct {
	Client  *sink.Multi
	Store   *sink.SQLiteStore // nil unless the sqlite backend is enabled
	Bleve   *sink.BleveClient // nil unless the bleve backend is enabled
	Parsers *parser.Registry
	Walker  *walker.Walker
	Indexer *indexer.Indexer
}

// Close closes every backend.
func (c *Components) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

func newParsers(cfg *config.Config) *parser.Registry {
	return parser.Default(cfg.Source.Markdown.MangleAnchors)
}

func newWalker(cfg *config.Config, logger *zap.Logger) *walker.Walker {
	return walker.New(
		walker.WithLogger(logger),
		walker.WithMaxDepth(cfg.Walker.MaxDepth),
		walker.WithPreambleTitle(cfg.Walker.PreambleTitle),
	)
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{
		Client:  sink.NewMulti(),
		Parsers: newParsers(cfg),
		Walker:  newWalker(cfg, logger),
	}
	for _, backend := range cfg.Index.Backends {
		switch strings.ToLower(backend) {
		case config.BackendBleve:
			bc, err := sink.NewBleveClient(cfg.Index.BleveIndexPath, cfg.Index.BatchSize, logger)
			if err != nil {
				_ = c.Close()
				return nil, fmt.Errorf("failed to initialize bleve index: %w", err)
			}
			c.Bleve = bc
			c.Client.Add(config.BackendBleve, bc)
		case config.BackendSQLite:
			store, err := sink.NewSQLiteStore(cfg.Index.DatabasePath)
			if err != nil {
				_ = c.Close()
				return nil, fmt.Errorf("failed to initialize record store: %w", err)
			}
			c.Store = store
			c.Client.Add(config.BackendSQLite, store)
		case config.BackendSolr:
			c.Client.Add(config.BackendSolr, sink.NewSolrClient(cfg.Solr.URL, cfg.Solr.Collection, cfg.Solr.Timeout, logger))
		default:
			_ = c.Close()
			return nil, fmt.Errorf("unknown backend %q", backend)
		}
	}
	logger.Info("index backends initialized", zap.Strings("backends", cfg.Index.Backends))

	c.Indexer = indexer.NewIndexer(c.Client, c.Parsers,
		indexer.WithLogger(logger),
		indexer.WithWalker(c.Walker),
		indexer.WithExtensions(cfg.Source.Extensions),
		indexer.WithRecursive(cfg.Source.RecursiveOrDefault()),
	)
	return c, nil
}
