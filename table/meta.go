package table

import (
	"context"
	"fmt"
	"strings"

	"vdb/table/index"
)

// CreateTable creates the table's backing storage (data + config tables
// and the partial unique index enforcing one is_latest row per key),
// materializes every attached index's tables, catches each index up to
// the table's current state, garbage-collects tables from indexes no
// longer attached, and finally notifies observers with EventTableCreated.
func (t *Table) CreateTable(ctx context.Context, conn *Conn) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
		  rowid INTEGER PRIMARY KEY AUTOINCREMENT,
		  key BLOB,
		  is_deleted BOOLEAN,
		  is_latest BOOLEAN,
		  value BLOB
		);

		CREATE TABLE IF NOT EXISTS %[2]s (
		  key INTEGER PRIMARY KEY,
		  value BLOB
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]s_key_latest ON %[1]s(key, is_latest) WHERE is_latest = 1;
	`, t.dataTable(), t.confTable())

	if err := conn.ExecBatch(ctx, ddl); err != nil {
		return err
	}

	var tablesActive []string
	for _, idx := range t.indexes {
		tables, err := idx.CreateTable(ctx, conn)
		if err != nil {
			return err
		}
		tablesActive = append(tablesActive, tables...)
	}

	for _, idx := range t.indexes {
		synced, err := idx.DataVersion(ctx, conn)
		if err != nil {
			return err
		}
		err = t.scanToEnd(ctx, conn, synced, func(key []byte, value []byte, deleted bool, version int64) error {
			if deleted {
				return idx.ApplyUpdates(ctx, conn, []index.Update{{Kind: index.Delete, Key: key, Version: version}})
			}
			return idx.ApplyUpdates(ctx, conn, []index.Update{{Kind: index.Upsert, Key: key, Value: value, Version: version}})
		})
		if err != nil {
			return err
		}
	}

	prevTables, err := t.loadAssociatedTables(ctx, conn)
	if err != nil {
		return err
	}
	activeSet := make(map[string]bool, len(tablesActive))
	for _, n := range tablesActive {
		activeSet[n] = true
	}
	for _, stale := range prevTables {
		if stale == "" || activeSet[stale] {
			continue
		}
		// best-effort: a failed drop here isn't fatal to table creation
		conn.ExecBatch(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, stale))
	}
	if err := t.saveAssociatedTables(ctx, conn, tablesActive); err != nil {
		return err
	}

	t.notify(Event{Kind: EventTableCreated})
	return nil
}

func (t *Table) saveAssociatedTables(ctx context.Context, conn *Conn, tables []string) error {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s (key, value) VALUES (2, ?)`, t.confTable())
	_, err := conn.Exec(ctx, query, strings.Join(tables, ","))
	return err
}

func (t *Table) loadAssociatedTables(ctx context.Context, conn *Conn) ([]string, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = 2`, t.confTable())
	row, err := conn.QueryRow(ctx, query)
	if err != nil {
		return nil, err
	}
	var value string
	if err := row.Scan(&value); err != nil {
		if NoRowToNone(err) {
			return nil, nil
		}
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	return strings.Split(value, ","), nil
}
