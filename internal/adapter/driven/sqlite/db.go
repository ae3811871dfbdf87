package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const maxReaders = 4

// pragmas applied to every connection. journal_mode is added separately
// because in-memory databases cannot use WAL.
var pragmas = []string{
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"cache_size(-64000)",
}

// DB holds a single-connection writer and a small reader pool over one
// SQLite file. Credential and history writes all go through Writer so the
// local cache never sees "database is locked".
type DB struct {
	Writer *sqlx.DB
	Reader *sqlx.DB
}

// NewDB opens the SQLite file at dbPath in WAL mode.
func NewDB(ctx context.Context, dbPath string) (*DB, error) {
	return open(ctx, buildDSN(dbPath, "journal_mode(WAL)"))
}

func buildDSN(name string, extra ...string) string {
	params := make([]string, 0, len(pragmas)+len(extra))
	for _, group := range [][]string{extra, pragmas} {
		for _, p := range group {
			if strings.Contains(p, "=") {
				params = append(params, p)
				continue
			}
			params = append(params, "_pragma="+p)
		}
	}
	return "file:" + name + "?" + strings.Join(params, "&")
}

func open(ctx context.Context, dsn string) (*DB, error) {
	writer, err := connect(ctx, dsn, 1)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}

	reader, err := connect(ctx, dsn, maxReaders)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}

	return &DB{Writer: writer, Reader: reader}, nil
}

func connect(ctx context.Context, dsn string, maxConns int) (*sqlx.DB, error) {
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(maxConns)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return conn, nil
}

// withTx runs fn inside a writer transaction and commits when fn succeeds.
// The transaction is rolled back on any error returned by fn.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Writer.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes both pools and reports the first failure.
func (db *DB) Close() error {
	var firstErr error

	if err := db.Reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}

	if err := db.Writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}

	return firstErr
}
