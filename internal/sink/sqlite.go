package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/docindex/internal/models"
)

// SQLiteStore keeps the record trees of the last committed run, plus run
// history. A run's writes share one transaction, opened by ClearAll (or the
// first Submit) and committed by Commit, so readers see the previous run's
// records until the new run commits.
type SQLiteStore struct {
	db *sql.DB

	mu sync.Mutex
	tx *sql.Tx
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		root_seq INTEGER,
		parent_seq INTEGER,
		position INTEGER NOT NULL,
		file_name TEXT NOT NULL,
		title TEXT NOT NULL,
		anchor TEXT,
		path TEXT NOT NULL,
		level INTEGER NOT NULL,
		text TEXT,
		children_count INTEGER NOT NULL,
		is_document_root INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_id ON records(id);
	CREATE INDEX IF NOT EXISTS idx_records_root ON records(root_seq, parent_seq, position);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		files INTEGER NOT NULL,
		records INTEGER NOT NULL,
		committed INTEGER NOT NULL,
		report TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := db.Exec(schema)
	return err
}

// begin returns the run transaction, opening it if needed. Callers hold mu.
func (s *SQLiteStore) begin(ctx context.Context) (*sql.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	s.tx = tx
	return tx, nil
}

// ClearAll deletes every stored record inside the run transaction.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

// Submit writes the record tree inside the run transaction.
func (s *SQLiteStore) Submit(ctx context.Context, root *models.IndexRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, root_seq, parent_seq, position, file_name, title, anchor, path, level, text, children_count, is_document_root)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var rootSeq int64
	var insert func(rec *models.IndexRecord, parentSeq sql.NullInt64, position int) error
	insert = func(rec *models.IndexRecord, parentSeq sql.NullInt64, position int) error {
		pathJSON, err := json.Marshal(rec.Path)
		if err != nil {
			return fmt.Errorf("failed to marshal path: %w", err)
		}
		var text sql.NullString
		if len(rec.Text) > 0 {
			b, err := json.Marshal(rec.Text)
			if err != nil {
				return fmt.Errorf("failed to marshal text: %w", err)
			}
			text = sql.NullString{String: string(b), Valid: true}
		}
		var anchor sql.NullString
		if rec.Anchor != nil {
			anchor = sql.NullString{String: *rec.Anchor, Valid: true}
		}
		var rootRef sql.NullInt64
		if parentSeq.Valid {
			rootRef = sql.NullInt64{Int64: rootSeq, Valid: true}
		}
		res, err := stmt.ExecContext(ctx,
			rec.ID, rootRef, parentSeq, position, rec.FileName, rec.Title, anchor,
			string(pathJSON), rec.Level, text, rec.ChildrenCount, rec.IsDocumentRoot,
		)
		if err != nil {
			return fmt.Errorf("insert %s: %w", rec.ID, err)
		}
		seq, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if !parentSeq.Valid {
			rootSeq = seq
			if _, err := tx.ExecContext(ctx, `UPDATE records SET root_seq = seq WHERE seq = ?`, seq); err != nil {
				return err
			}
		}
		for i, child := range rec.Children {
			if err := insert(child, sql.NullInt64{Int64: seq, Valid: true}, i); err != nil {
				return err
			}
		}
		return nil
	}
	return insert(root, sql.NullInt64{}, 0)
}

// Commit commits the run transaction. Without one it is a no-op.
func (s *SQLiteStore) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards an uncommitted run. Without one it is a no-op.
func (s *SQLiteStore) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// RecordRun stores a run report.
func (s *SQLiteStore) RecordRun(ctx context.Context, report *models.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	var finished sql.NullTime
	if !report.FinishedAt.IsZero() {
		finished = sql.NullTime{Time: report.FinishedAt, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, started_at, finished_at, files, records, committed, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.StartedAt, finished, report.Files, report.Records, report.Committed, string(data),
	)
	return err
}

// LastRun returns the most recently started run.
func (s *SQLiteStore) LastRun(ctx context.Context) (*models.RunReport, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("last run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var report models.RunReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// CountRecords returns the number of committed records.
func (s *SQLiteStore) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

// GetRecordTree returns the committed record with the given id and its
// subtree. When several files share a base name the first stored match wins.
func (s *SQLiteStore) GetRecordTree(ctx context.Context, id string) (*models.IndexRecord, error) {
	var seq, rootSeq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT seq, root_seq FROM records WHERE id = ? ORDER BY seq LIMIT 1`, id,
	).Scan(&seq, &rootSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, parent_seq, id, file_name, title, anchor, path, level, text, children_count, is_document_root
		 FROM records WHERE root_seq = ? ORDER BY parent_seq, position`, rootSeq,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bySeq := make(map[int64]*models.IndexRecord)
	type link struct{ seq, parent int64 }
	var links []link
	for rows.Next() {
		var (
			recSeq    int64
			parentSeq sql.NullInt64
			anchor    sql.NullString
			pathJSON  string
			textJSON  sql.NullString
			rec       models.IndexRecord
		)
		if err := rows.Scan(&recSeq, &parentSeq, &rec.ID, &rec.FileName, &rec.Title, &anchor,
			&pathJSON, &rec.Level, &textJSON, &rec.ChildrenCount, &rec.IsDocumentRoot); err != nil {
			return nil, err
		}
		if anchor.Valid {
			a := anchor.String
			rec.Anchor = &a
		}
		if err := json.Unmarshal([]byte(pathJSON), &rec.Path); err != nil {
			return nil, fmt.Errorf("failed to unmarshal path: %w", err)
		}
		if textJSON.Valid {
			if err := json.Unmarshal([]byte(textJSON.String), &rec.Text); err != nil {
				return nil, fmt.Errorf("failed to unmarshal text: %w", err)
			}
		}
		rec.HasText = len(rec.Text) > 0
		rec.Children = []*models.IndexRecord{}
		bySeq[recSeq] = &rec
		if parentSeq.Valid {
			links = append(links, link{seq: recSeq, parent: parentSeq.Int64})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Rows arrive ordered by parent then position, so appends keep child order.
	for _, l := range links {
		if parent, ok := bySeq[l.parent]; ok {
			parent.Children = append(parent.Children, bySeq[l.seq])
		}
	}
	rec, ok := bySeq[seq]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

// Close rolls back an uncommitted run and closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}
