// Package indexer runs full clear-then-rebuild passes: resolve paths, parse
// and walk each file, submit its record tree, commit once.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/docindex/internal/fileid"
	"github.com/hyperjump/docindex/internal/models"
	"github.com/hyperjump/docindex/internal/parser"
	"github.com/hyperjump/docindex/internal/sink"
	"github.com/hyperjump/docindex/internal/walker"
	"go.uber.org/zap"
)

// ErrPathErrors is wrapped by Run when some input paths could not be read.
// The run itself was still committed.
var ErrPathErrors = errors.New("some paths could not be read")

// Indexer rebuilds an index from source paths.
type Indexer struct {
	client     sink.Client
	parsers    *parser.Registry
	walker     *walker.Walker
	extensions []string
	recursive  bool
	logger     *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithWalker replaces the default walker.
func WithWalker(w *walker.Walker) IndexerOption {
	return func(idx *Indexer) {
		if w != nil {
			idx.walker = w
		}
	}
}

// WithExtensions limits directory expansion to the given extensions
// (case-insensitive, leading dot optional). Empty means every extension
// the parser registry supports.
func WithExtensions(exts []string) IndexerOption {
	return func(idx *Indexer) { idx.extensions = exts }
}

// WithRecursive makes directory expansion descend into subdirectories.
func WithRecursive(on bool) IndexerOption {
	return func(idx *Indexer) { idx.recursive = on }
}

// NewIndexer creates an indexer that writes to client and parses with parsers.
func NewIndexer(client sink.Client, parsers *parser.Registry, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		client:  client,
		parsers: parsers,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.walker == nil {
		idx.walker = walker.New(walker.WithLogger(idx.logger))
	}
	return idx
}

// Run clears the index, indexes every file under paths in order and commits
// once. Parse, walk and submit failures abort the run without committing.
// Paths that cannot be read are reported and skipped; the run then commits
// and returns an error wrapping ErrPathErrors alongside the report.
func (idx *Indexer) Run(ctx context.Context, paths []string) (*models.RunReport, error) {
	report := &models.RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}
	log := idx.logger.With(zap.String("run_id", report.RunID))
	log.Info("index run started", zap.Strings("paths", paths))

	if err := idx.client.ClearAll(ctx); err != nil {
		return report, idx.abort(ctx, report, fmt.Errorf("clear index: %w", err))
	}

	for _, p := range paths {
		files, err := idx.Resolve(p)
		if err != nil {
			log.Error("cannot read path", zap.String("path", p), zap.Error(err))
			report.PathErrors = append(report.PathErrors, models.PathError{Path: p, Error: err.Error()})
			continue
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return report, idx.abort(ctx, report, err)
			}
			if err := idx.indexFile(ctx, f, report, log); err != nil {
				return report, idx.abort(ctx, report, err)
			}
		}
	}

	if err := idx.client.Commit(ctx); err != nil {
		return report, idx.abort(ctx, report, fmt.Errorf("commit: %w", err))
	}
	report.Committed = true
	report.FinishedAt = time.Now()
	idx.recordRun(ctx, report, log)
	log.Info("index run finished",
		zap.Int("files", report.Files),
		zap.Int("records", report.Records),
		zap.Int("anomalies", report.Anomalies),
		zap.Duration("took", report.Duration()),
	)

	if n := len(report.PathErrors); n > 0 {
		return report, fmt.Errorf("%d of %d paths: %w", n, len(paths), ErrPathErrors)
	}
	return report, nil
}

func (idx *Indexer) indexFile(ctx context.Context, path string, report *models.RunReport, log *zap.Logger) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	log.Debug("indexing file", zap.String("path", absPath))

	doc, err := idx.parsers.ParseFile(absPath)
	if err != nil {
		return err
	}
	res, err := idx.walker.Walk(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", absPath, err)
	}
	if err := idx.client.Submit(ctx, res.Root); err != nil {
		return fmt.Errorf("submit %s: %w", absPath, err)
	}

	report.Files++
	report.Records += res.Records
	report.Anomalies += res.Anomalies
	report.AddKinds(res.Kinds)
	report.FileStats = append(report.FileStats, models.FileSummary{
		Path:      absPath,
		SourceKey: fileid.SourceKey(absPath),
		RootID:    res.Root.ID,
		Records:   res.Records,
		Anomalies: res.Anomalies,
	})
	log.Info("file indexed",
		zap.String("path", absPath),
		zap.Int("records", res.Records),
		zap.Int("anomalies", res.Anomalies),
	)
	return nil
}

// abort discards the run on backends that support it and records the
// failed run. The original error is returned.
func (idx *Indexer) abort(ctx context.Context, report *models.RunReport, cause error) error {
	report.FinishedAt = time.Now()
	log := idx.logger.With(zap.String("run_id", report.RunID))
	if r, ok := idx.client.(sink.Rollbacker); ok {
		if err := r.Rollback(context.WithoutCancel(ctx)); err != nil {
			log.Warn("rollback failed", zap.Error(err))
		}
	}
	idx.recordRun(context.WithoutCancel(ctx), report, log)
	log.Error("index run aborted", zap.Error(cause))
	return cause
}

func (idx *Indexer) recordRun(ctx context.Context, report *models.RunReport, log *zap.Logger) {
	r, ok := idx.client.(sink.RunRecorder)
	if !ok {
		return
	}
	if err := r.RecordRun(ctx, report); err != nil {
		log.Warn("failed to record run", zap.Error(err))
	}
}

// Resolve expands path into the files to index. A directory yields its
// regular files with an accepted extension in name order, descending into
// subdirectories only when recursive. A file yields itself when a parser
// supports it.
func (idx *Indexer) Resolve(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("not a regular file: %s", path)
		}
		if !idx.parsers.Supports(path) {
			return nil, fmt.Errorf("%s: %w", path, parser.ErrUnsupported)
		}
		return []string{path}, nil
	}
	return idx.expand(path)
}

func (idx *Indexer) expand(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if !idx.recursive {
				continue
			}
			sub, err := idx.expand(full)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
			continue
		}
		if !idx.accepts(full) {
			continue
		}
		// Resolve symlinks so we only index regular files
		finfo, statErr := os.Stat(full)
		if statErr != nil || !finfo.Mode().IsRegular() {
			continue
		}
		files = append(files, full)
	}
	return files, nil
}

func (idx *Indexer) accepts(path string) bool {
	if !idx.parsers.Supports(path) {
		return false
	}
	return len(idx.extensions) == 0 || extensionAllowed(filepath.Ext(path), idx.extensions)
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
