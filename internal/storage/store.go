// Package storage keeps TestDocuments in SQLite so the runner can replay the
// latest cases for a URL.
package storage

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"web-testgen/internal/document"
	"web-testgen/internal/entity"
	"web-testgen/internal/ports"
	"web-testgen/pkg/apperr"
	"web-testgen/pkg/logg"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const Name = "storage"

//go:embed migrations/*.sql
var migrations embed.FS

const pragmas = "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ports.DocumentStore = (*Store)(nil)

// Open creates the database file if needed and migrates it.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	const op = "Open"

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, persistenceError(op, "mkdir_failed", err)
		}
	}

	db, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, persistenceError(op, "open_failed", err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, persistenceError(op, "ping_failed", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()

		return nil, persistenceError(op, "migrate_failed", err)
	}

	logger = logger.With(zap.String(logg.Layer, Name))
	logger.Info("document store ready", zap.String("path", path))

	return &Store{db: db, logger: logger}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, "migrations")
}

// Save stores doc and drops earlier documents for the same URL, so each URL
// keeps exactly one current document.
func (s *Store) Save(ctx context.Context, doc *entity.TestDocument) error {
	const op = "Save"

	body, err := document.Marshal(document.FormatJSON, doc)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceError(op, "begin_failed", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE url = ? AND run_id <> ?`, doc.Source.URL, doc.RunID); err != nil {
		return persistenceError(op, "delete_failed", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (run_id, url, page_title, cases, created_at, body)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			url = excluded.url,
			page_title = excluded.page_title,
			cases = excluded.cases,
			created_at = excluded.created_at,
			body = excluded.body`,
		doc.RunID, doc.Source.URL, doc.Source.PageTitle, len(doc.Cases), doc.Source.Timestamp.UnixMilli(), string(body))
	if err != nil {
		return persistenceError(op, "insert_failed", err)
	}

	if err := tx.Commit(); err != nil {
		return persistenceError(op, "commit_failed", err)
	}

	s.logger.Debug("document saved",
		zap.String(logg.Operation, op),
		zap.String(logg.RunID, doc.RunID),
		zap.String(logg.URL, doc.Source.URL),
		zap.Int("cases", len(doc.Cases)),
	)

	return nil
}

func (s *Store) Latest(ctx context.Context, url string) (*entity.TestDocument, error) {
	const op = "Latest"

	row := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE url = ? ORDER BY created_at DESC, run_id DESC LIMIT 1`, url)

	return s.scanDocument(op, row, fmt.Sprintf("no document for url %q", url))
}

func (s *Store) Get(ctx context.Context, runID string) (*entity.TestDocument, error) {
	const op = "Get"

	row := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE run_id = ?`, runID)

	return s.scanDocument(op, row, fmt.Sprintf("no document with run_id %q", runID))
}

// List returns summaries newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]ports.DocumentSummary, error) {
	const op = "List"

	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, url, page_title, cases, created_at
		FROM documents
		ORDER BY created_at DESC, run_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, persistenceError(op, "query_failed", err)
	}
	defer rows.Close()

	summaries := make([]ports.DocumentSummary, 0)
	for rows.Next() {
		var (
			summary ports.DocumentSummary
			created int64
		)

		if err := rows.Scan(&summary.RunID, &summary.URL, &summary.PageTitle, &summary.Cases, &created); err != nil {
			return nil, persistenceError(op, "scan_failed", err)
		}

		summary.CreatedAt = time.UnixMilli(created).UTC()
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, persistenceError(op, "rows_failed", err)
	}

	return summaries, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) scanDocument(op string, row *sql.Row, missing string) (*entity.TestDocument, error) {
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundError(op, errors.New(missing))
		}

		return nil, persistenceError(op, "scan_failed", err)
	}

	return document.DecodeDocument(bytes.NewReader([]byte(body)), document.FormatJSON)
}

func persistenceError(op, reason string, err error) error {
	return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
		apperr.MetaReason: reason,
		apperr.MetaStage:  apperr.StagePersistence,
	})
}
