// Package sink delivers finished record trees to search index backends.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/docindex/internal/models"
	"go.uber.org/multierr"
)

// ErrNotFound is returned when a stored record or run does not exist.
var ErrNotFound = errors.New("not found")

// Client is an index backend. A run calls ClearAll once, Submit once per
// file root, and Commit once; nothing submitted is visible before Commit.
type Client interface {
	ClearAll(ctx context.Context) error
	Submit(ctx context.Context, root *models.IndexRecord) error
	Commit(ctx context.Context) error
	Close() error
}

// RunRecorder is implemented by backends that keep run history.
type RunRecorder interface {
	RecordRun(ctx context.Context, report *models.RunReport) error
}

// Rollbacker is implemented by backends that can discard an aborted run.
type Rollbacker interface {
	Rollback(ctx context.Context) error
}

// Multi fans every call out to each client in order. The first error stops
// the call; clients after the failing one are not called.
type Multi struct {
	clients []Client
	names   []string
}

// NewMulti returns an empty Multi.
func NewMulti() *Multi {
	return &Multi{}
}

// Add appends a client; name identifies it in errors.
func (m *Multi) Add(name string, c Client) {
	m.clients = append(m.clients, c)
	m.names = append(m.names, name)
}

// Len returns the number of clients.
func (m *Multi) Len() int {
	return len(m.clients)
}

// ClearAll implements Client.
func (m *Multi) ClearAll(ctx context.Context) error {
	return m.each(func(c Client) error { return c.ClearAll(ctx) })
}

// Submit implements Client.
func (m *Multi) Submit(ctx context.Context, root *models.IndexRecord) error {
	return m.each(func(c Client) error { return c.Submit(ctx, root) })
}

// Commit implements Client.
func (m *Multi) Commit(ctx context.Context) error {
	return m.each(func(c Client) error { return c.Commit(ctx) })
}

// RecordRun forwards the report to every client that keeps run history.
func (m *Multi) RecordRun(ctx context.Context, report *models.RunReport) error {
	return m.each(func(c Client) error {
		if r, ok := c.(RunRecorder); ok {
			return r.RecordRun(ctx, report)
		}
		return nil
	})
}

// Rollback asks every client that supports it to discard the current run.
// All clients are tried; errors are combined.
func (m *Multi) Rollback(ctx context.Context) error {
	var err error
	for i, c := range m.clients {
		if r, ok := c.(Rollbacker); ok {
			if rerr := r.Rollback(ctx); rerr != nil {
				err = multierr.Append(err, fmt.Errorf("%s: %w", m.names[i], rerr))
			}
		}
	}
	return err
}

// Close closes every client and returns all errors combined.
func (m *Multi) Close() error {
	var err error
	for i, c := range m.clients {
		if cerr := c.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", m.names[i], cerr))
		}
	}
	return err
}

func (m *Multi) each(fn func(Client) error) error {
	for i, c := range m.clients {
		if err := fn(c); err != nil {
			return fmt.Errorf("%s: %w", m.names[i], err)
		}
	}
	return nil
}
