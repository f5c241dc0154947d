package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/docindex/internal/parser"
)

func parserRegistry() *parser.Registry {
	return parser.Default(false)
}

func writeDoc(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}
