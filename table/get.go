package table

import (
	"context"
	"fmt"
)

// Get returns key's latest non-deleted value and its version, or a zero
// VersionedValue and false if key doesn't exist or is currently deleted.
func (t *Table) Get(ctx context.Context, conn *Conn, key []byte) (VersionedValue, bool, error) {
	query := fmt.Sprintf(
		`SELECT value, rowid FROM %s WHERE key = ? AND is_latest = 1 AND is_deleted <> 1`,
		t.dataTable(),
	)
	row, err := conn.QueryRow(ctx, query, key)
	if err != nil {
		return VersionedValue{}, false, err
	}
	var v VersionedValue
	if err := row.Scan(&v.Value, &v.Version); err != nil {
		if NoRowToNone(err) {
			return VersionedValue{}, false, nil
		}
		return VersionedValue{}, false, err
	}
	return v, true, nil
}

// GetByVersion returns the value key held at exactly the given version
// (rowid), as long as that row isn't a tombstone, or (nil, false) if no
// such row exists.
func (t *Table) GetByVersion(ctx context.Context, conn *Conn, key []byte, version int64) ([]byte, bool, error) {
	query := fmt.Sprintf(
		`SELECT value FROM %s WHERE key = ? AND rowid = ? AND is_deleted <> 1`,
		t.dataTable(),
	)
	row, err := conn.QueryRow(ctx, query, key, version)
	if err != nil {
		return nil, false, err
	}
	var value []byte
	if err := row.Scan(&value); err != nil {
		if NoRowToNone(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}
