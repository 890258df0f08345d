// Package index implements per-table secondary indexes: a pure Extractor
// function maps a primary key/value pair to zero or more index keys, and
// Index maintains a (index key, primary key) mapping table kept in sync
// with the owning table via diff-based updates, plus a watermark so a
// freshly attached index can catch up on rows it missed.
package index

import (
	"context"
	"database/sql"
	"fmt"
)

// Extractor computes the index keys a (pk, value) pair should be found
// under. It must be pure: called repeatedly with the same inputs, it must
// return the same keys, since the index engine diffs old vs. new key sets
// to decide what to insert/delete.
type Extractor func(pk, value []byte) ([]Key, error)

// Key is a raw, already-encoded index key (normally a key.Key's bytes).
type Key []byte

// Options configures table creation for an Index.
type Options struct {
	// WithoutRowid creates the index's data table WITHOUT ROWID, a good
	// fit since it's already a covering (ik, pk) composite primary key.
	WithoutRowid bool
}

// Index maintains one secondary index for a table.
type Index struct {
	Name string

	dataTableName   string
	configTableName string
	opts            Options
	extractor       Extractor
}

// New builds an Index named indexName for the table named tableName.
func New(indexName, tableName string, opts Options, extractor Extractor) *Index {
	return &Index{
		Name:            indexName,
		dataTableName:   fmt.Sprintf("%s_idx_%s_data", tableName, indexName),
		configTableName: fmt.Sprintf("%s_idx_%s_config", tableName, indexName),
		opts:            opts,
		extractor:       extractor,
	}
}

// CreateTable creates the index's backing tables if they don't already
// exist, returning the names of every table it owns so the caller (the
// owning Table) can track and garbage-collect tables from indexes that
// are no longer attached.
func (idx *Index) CreateTable(ctx context.Context, conn Conn) ([]string, error) {
	withoutRowid := ""
	if idx.opts.WithoutRowid {
		withoutRowid = "WITHOUT ROWID"
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
		  ik BLOB,
		  pk BLOB,
		  PRIMARY KEY (ik, pk)
		) %[3]s;

		CREATE INDEX IF NOT EXISTS idx_%[1]s_pk ON %[1]s (pk);

		CREATE TABLE IF NOT EXISTS %[2]s (
		  key INTEGER PRIMARY KEY,
		  value INTEGER
		);
	`, idx.dataTableName, idx.configTableName, withoutRowid)

	if err := conn.ExecBatch(ctx, ddl); err != nil {
		return nil, err
	}

	return []string{idx.dataTableName, idx.configTableName}, nil
}

// UpdateKind tags one element of a diff-applied batch of index updates.
type UpdateKind int

const (
	// Upsert recomputes and stores the index keys for (key, value) at
	// version.
	Upsert UpdateKind = iota
	// Delete removes every index key currently stored for key.
	Delete
)

// Update is one change to apply to the index, driven by a change to the
// owning table. Version is the table row's rowid and is persisted as the
// index's new watermark in both cases - a delete advances the watermark
// exactly as an upsert does.
type Update struct {
	Kind    UpdateKind
	Key     []byte
	Value   []byte // only meaningful for Upsert
	Version int64
}

// ApplyUpdates applies a batch of table-driven updates to the index.
func (idx *Index) ApplyUpdates(ctx context.Context, conn Conn, updates []Update) error {
	for _, u := range updates {
		switch u.Kind {
		case Upsert:
			if err := idx.Update(ctx, conn, u.Key, u.Value, u.Version); err != nil {
				return err
			}
		case Delete:
			if err := idx.deleteByPK(ctx, conn, u.Key, u.Version); err != nil {
				return err
			}
		}
	}
	return nil
}

// Update recomputes pk's index keys from the extractor and diffs them
// against what's currently stored, inserting newly-added keys and
// deleting stale ones, then records version as the index's sync
// watermark.
func (idx *Index) Update(ctx context.Context, conn Conn, pk, value []byte, version int64) error {
	prevKeys, err := idx.innerGetPrevKeys(ctx, conn, pk)
	if err != nil {
		return err
	}
	newKeys, err := idx.extractor(pk, value)
	if err != nil {
		return err
	}

	prevSet := make(map[string]bool, len(prevKeys))
	for _, k := range prevKeys {
		prevSet[string(k)] = true
	}
	newSet := make(map[string]bool, len(newKeys))

	var toInsert []Key
	for _, k := range newKeys {
		newSet[string(k)] = true
		if !prevSet[string(k)] {
			toInsert = append(toInsert, k)
		}
	}
	var toDelete []Key
	for _, k := range prevKeys {
		if !newSet[string(k)] {
			toDelete = append(toDelete, k)
		}
	}

	if err := idx.innerDeleteIKs(ctx, conn, toDelete, pk); err != nil {
		return err
	}
	if err := idx.innerInsertIKs(ctx, conn, toInsert, pk); err != nil {
		return err
	}
	return idx.innerSaveVersion(ctx, conn, version)
}

// deleteByPK removes every index key stored for pk and advances the
// watermark to version, the same as Update does for an upsert.
func (idx *Index) deleteByPK(ctx context.Context, conn Conn, pk []byte, version int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE pk = ?`, idx.dataTableName)
	if _, err := conn.Exec(ctx, query, pk); err != nil {
		return err
	}
	return idx.innerSaveVersion(ctx, conn, version)
}

func (idx *Index) innerGetPrevKeys(ctx context.Context, conn Conn, pk []byte) ([]Key, error) {
	query := fmt.Sprintf(`SELECT ik FROM %s WHERE pk = ?`, idx.dataTableName)
	rows, err := conn.Query(ctx, query, pk)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var ik []byte
		if err := rows.Scan(&ik); err != nil {
			return nil, err
		}
		keys = append(keys, Key(ik))
	}
	return keys, rows.Err()
}

func (idx *Index) innerInsertIKs(ctx context.Context, conn Conn, iks []Key, pk []byte) error {
	query := fmt.Sprintf(`INSERT INTO %s (ik, pk) VALUES (?, ?)`, idx.dataTableName)
	for _, ik := range iks {
		if _, err := conn.Exec(ctx, query, []byte(ik), pk); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) innerDeleteIKs(ctx context.Context, conn Conn, iks []Key, pk []byte) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE ik = ? AND pk = ?`, idx.dataTableName)
	for _, ik := range iks {
		if _, err := conn.Exec(ctx, query, []byte(ik), pk); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) innerSaveVersion(ctx context.Context, conn Conn, version int64) error {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s (key, value) VALUES (1, ?)`, idx.configTableName)
	_, err := conn.Exec(ctx, query, version)
	return err
}

// DataVersion reports the rowid watermark this index has been synced up
// to, or 0 if it has never been synced.
func (idx *Index) DataVersion(ctx context.Context, conn Conn) (int64, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = 1`, idx.configTableName)
	row, err := conn.QueryRow(ctx, query)
	if err != nil {
		return 0, err
	}
	var version int64
	if err := row.Scan(&version); err != nil {
		if noRowToNone(err) {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

// noRowToNone reports whether err is sql.ErrNoRows, the same translation
// table.NoRowToNone does. Duplicated rather than imported to avoid a cycle
// with the table package, which imports this one.
func noRowToNone(err error) bool {
	return err == sql.ErrNoRows
}

// Conn is the subset of table.Conn's API the index engine needs, kept as
// a narrow interface here to avoid an import cycle with the table
// package (which owns the concrete Conn and drives index updates).
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) (*sql.Row, error)
	ExecBatch(ctx context.Context, script string) error
}
