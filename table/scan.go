package table

import (
	"context"
	"fmt"
)

// scanToEnd walks every is_latest row with rowid > fromVersion in rowid
// order, invoking f with each key, its value (meaningless when deleted is
// true), whether it's a tombstone, and its version. This drives index
// catch-up in CreateTable: an index records the last rowid it has synced,
// and scanToEnd replays everything since then.
//
// It reads the is_deleted column directly to tell a tombstone from a
// live row, so a genuinely empty value is never confused with a delete.
func (t *Table) scanToEnd(ctx context.Context, conn *Conn, fromVersion int64, f func(key, value []byte, deleted bool, version int64) error) error {
	query := fmt.Sprintf(
		`SELECT key, value, is_deleted, rowid FROM %s WHERE rowid > ? AND is_latest = 1 ORDER BY rowid`,
		t.dataTable(),
	)
	rows, err := conn.Query(ctx, query, fromVersion)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		var deleted bool
		var version int64
		if err := rows.Scan(&key, &value, &deleted, &version); err != nil {
			return err
		}
		if err := f(key, value, deleted, version); err != nil {
			return err
		}
	}
	return rows.Err()
}
