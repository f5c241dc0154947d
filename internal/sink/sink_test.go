package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/docindex/internal/models"
)

// sampleTree returns doc -> [preamble, install -> [source]].
func sampleTree(file string) *models.IndexRecord {
	anchor := func(s string) *string { return &s }
	source := &models.IndexRecord{
		ID: file + ":#from-source", FileName: file, Title: "From source", Anchor: anchor("#from-source"),
		Path: []string{"Guide", "Install", "From source"}, Level: 2,
		HasText: true, Text: []string{"make install"}, Children: []*models.IndexRecord{},
	}
	install := &models.IndexRecord{
		ID: file + ":#install", FileName: file, Title: "Install", Anchor: anchor("#install"),
		Path: []string{"Guide", "Install"}, Level: 1,
		HasText: true, Text: []string{"Run this:", "go build"},
		Children: []*models.IndexRecord{source}, ChildrenCount: 1,
	}
	preamble := &models.IndexRecord{
		ID: file + ":##PREAMBLE", FileName: file, Title: "Preamble",
		Path: []string{"Guide", "Preamble"}, HasText: true, Text: []string{"Welcome."},
		Children: []*models.IndexRecord{},
	}
	return &models.IndexRecord{
		ID: file + ":##DOC", FileName: file, Title: "Guide", Path: []string{"Guide"},
		Children: []*models.IndexRecord{preamble, install}, ChildrenCount: 2, IsDocumentRoot: true,
	}
}

type recordingClient struct {
	calls     []string
	failOn    string
	closeErr  error
	rolled    bool
	submitted []*models.IndexRecord
}

func (r *recordingClient) step(name string) error {
	r.calls = append(r.calls, name)
	if r.failOn == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (r *recordingClient) ClearAll(context.Context) error { return r.step("clear") }

func (r *recordingClient) Submit(_ context.Context, root *models.IndexRecord) error {
	r.submitted = append(r.submitted, root)
	return r.step("submit")
}

func (r *recordingClient) Commit(context.Context) error { return r.step("commit") }

func (r *recordingClient) Close() error {
	r.calls = append(r.calls, "close")
	return r.closeErr
}

func (r *recordingClient) Rollback(context.Context) error {
	r.rolled = true
	return nil
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &recordingClient{}, &recordingClient{}
	m := NewMulti()
	m.Add("a", a)
	m.Add("b", b)
	ctx := context.Background()

	if err := m.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Submit(ctx, sampleTree("g.md")); err != nil {
		t.Fatal(err)
	}
	if err := m.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	for name, c := range map[string]*recordingClient{"a": a, "b": b} {
		if got := len(c.calls); got != 3 {
			t.Errorf("%s: %d calls, want 3: %v", name, got, c.calls)
		}
	}
}

func TestMulti_FirstErrorStops(t *testing.T) {
	a, b := &recordingClient{failOn: "submit"}, &recordingClient{}
	m := NewMulti()
	m.Add("bleve", a)
	m.Add("solr", b)

	err := m.Submit(context.Background(), sampleTree("g.md"))
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "bleve: submit failed" {
		t.Errorf("error = %q", err)
	}
	if len(b.calls) != 0 {
		t.Errorf("second client should not be called: %v", b.calls)
	}
}

func TestMulti_CloseAndRollbackReachEveryClient(t *testing.T) {
	a := &recordingClient{closeErr: errors.New("boom")}
	b := &recordingClient{}
	m := NewMulti()
	m.Add("a", a)
	m.Add("b", b)

	if err := m.Rollback(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !a.rolled || !b.rolled {
		t.Error("Rollback should reach every client")
	}
	if err := m.Close(); err == nil {
		t.Error("Close should report the failing client")
	}
	if len(b.calls) != 1 || b.calls[0] != "close" {
		t.Errorf("b should still be closed: %v", b.calls)
	}
}
