// Package table implements the versioned key-value table engine: rows
// carry a monotonic rowid/version, an is_latest witness, and a tombstone
// flag, backed by a SQL substrate (modernc.org/sqlite, driven through
// database/sql).
package table

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Conn wraps a single pinned *sql.Conn with a prepared-statement cache
// keyed by exact SQL text. A single physical connection is pinned (rather
// than drawn fresh from the pool per call) because transactions here are
// plain SQL BEGIN/COMMIT/ROLLBACK issued against one connection, and a
// cached *sql.Stmt must be reused against that same connection to avoid
// re-preparing on every call.
type Conn struct {
	db  *sql.DB
	raw *sql.Conn

	mu    sync.Mutex
	stmts map[string]*sql.Stmt
}

// Open opens a sqlite database at dataSourceName (a file path, or
// "file::memory:?cache=private" for a private in-memory database).
func Open(dataSourceName string) (*Conn, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, err
	}
	raw, err := db.Conn(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Conn{db: db, raw: raw, stmts: make(map[string]*sql.Stmt)}, nil
}

// OpenInMemory opens a private in-memory database, useful for tests.
func OpenInMemory() (*Conn, error) {
	return Open("file::memory:?cache=private")
}

// Close releases all cached statements and the underlying connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	for _, stmt := range c.stmts {
		stmt.Close()
	}
	c.stmts = nil
	c.mu.Unlock()

	if err := c.raw.Close(); err != nil {
		c.db.Close()
		return err
	}
	return c.db.Close()
}

// prepared returns a cached *sql.Stmt for query, preparing and caching it
// on first use.
func (c *Conn) prepared(ctx context.Context, query string) (*sql.Stmt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stmt, ok := c.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := c.raw.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	c.stmts[query] = stmt
	return stmt, nil
}

// Exec runs query (a cached prepared statement) with args.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	stmt, err := c.prepared(ctx, query)
	if err != nil {
		return nil, err
	}
	return stmt.ExecContext(ctx, args...)
}

// Query runs query (a cached prepared statement) with args.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	stmt, err := c.prepared(ctx, query)
	if err != nil {
		return nil, err
	}
	return stmt.QueryContext(ctx, args...)
}

// QueryRow runs query (a cached prepared statement) with args, for
// single-row reads.
func (c *Conn) QueryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	stmt, err := c.prepared(ctx, query)
	if err != nil {
		return nil, err
	}
	return stmt.QueryRowContext(ctx, args...), nil
}

// ExecBatch runs a semicolon-separated block of DDL statements, the
// equivalent of rusqlite's execute_batch used throughout table/index
// creation. DDL statements aren't cached - they run once per table.
func (c *Conn) ExecBatch(ctx context.Context, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := c.raw.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Begin starts a transaction on the pinned connection.
func (c *Conn) Begin(ctx context.Context) error {
	_, err := c.raw.ExecContext(ctx, "BEGIN")
	return err
}

// Commit commits the open transaction.
func (c *Conn) Commit(ctx context.Context) error {
	_, err := c.raw.ExecContext(ctx, "COMMIT")
	return err
}

// Rollback aborts the open transaction.
func (c *Conn) Rollback(ctx context.Context) error {
	_, err := c.raw.ExecContext(ctx, "ROLLBACK")
	return err
}

// NoRowToNone reports whether err is sql.ErrNoRows, letting a caller turn
// a "no rows" query error into a plain not-found result rather than
// propagating it.
func NoRowToNone(err error) (none bool) {
	return err == sql.ErrNoRows
}
