// Package parser turns source files into document trees for the walker.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/docindex/internal/doctree"
)

// ErrUnsupported is returned for files whose extension has no parser.
var ErrUnsupported = errors.New("unsupported file type")

// Parser converts the bytes of one source file into a document tree.
// fileName is the base name recorded on every record of the file.
type Parser interface {
	Parse(src []byte, fileName string) (*doctree.Document, error)
}

// Registry dispatches files to parsers by extension.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Default returns a Registry with the Markdown and tree parsers registered
// for their usual extensions.
func Default(mangleAnchors bool) *Registry {
	r := NewRegistry()
	r.Register(NewMarkdownParser(WithMangledAnchors(mangleAnchors)), ".md", ".markdown")
	r.Register(NewTreeParser(), ".json", ".yaml", ".yml")
	return r
}

// Register associates p with each extension. Extensions include the leading
// dot and are matched case-insensitively.
func (r *Registry) Register(p Parser, exts ...string) {
	for _, ext := range exts {
		r.parsers[strings.ToLower(ext)] = p
	}
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether a parser is registered for path's extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.parsers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ForFile returns the parser for path's extension.
func (r *Registry) ForFile(path string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%s: %w (%q)", path, ErrUnsupported, ext)
	}
	return p, nil
}

// ParseFile reads the file at path and parses it with the matching parser.
func (r *Registry) ParseFile(path string) (*doctree.Document, error) {
	p, err := r.ForFile(path)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	doc, err := p.Parse(src, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}
