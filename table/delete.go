package table

import (
	"context"
	"fmt"

	"vdb/table/index"
)

// Delete tombstones key's current row, returning the tombstone's version,
// or 0 if key had no current row to delete. Unlike DeleteWithVersion,
// this doesn't notify observers - event delivery is only wired through
// the optimistic-concurrency delete path.
func (t *Table) Delete(ctx context.Context, conn *Conn, key []byte) (int64, error) {
	if err := conn.Begin(ctx); err != nil {
		return 0, err
	}

	modified, err := t.updateLastToNotLatest(ctx, conn, key)
	if err != nil {
		conn.Rollback(ctx)
		return 0, err
	}
	if !modified {
		conn.Rollback(ctx)
		return 0, nil
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (key, is_latest, is_deleted, value) VALUES (?, 1, 1, '')`,
		t.dataTable(),
	)
	res, err := conn.Exec(ctx, query, key)
	if err != nil {
		conn.Rollback(ctx)
		return 0, err
	}
	lastVersion, err := res.LastInsertId()
	if err != nil {
		conn.Rollback(ctx)
		return 0, err
	}

	for _, idx := range t.indexes {
		update := []index.Update{{Kind: index.Delete, Key: key, Version: lastVersion}}
		if err := idx.ApplyUpdates(ctx, conn, update); err != nil {
			conn.Rollback(ctx)
			return 0, err
		}
	}

	if err := conn.Commit(ctx); err != nil {
		return 0, err
	}
	return lastVersion, nil
}

// DeleteWithVersion tombstones key only if its current version still
// matches the expected version (optimistic concurrency control): if
// another writer has since inserted a newer version, this is a no-op
// that returns 0. On success, it notifies observers with the key's
// deletion.
func (t *Table) DeleteWithVersion(ctx context.Context, conn *Conn, key []byte, version int64) (int64, error) {
	if err := conn.Begin(ctx); err != nil {
		return 0, err
	}

	lastValue, hadValue, err := t.GetByVersion(ctx, conn, key, version)
	if err != nil {
		conn.Rollback(ctx)
		return 0, err
	}

	modified, err := t.updateLastToNotLatestWithVersion(ctx, conn, key, version)
	if err != nil {
		conn.Rollback(ctx)
		return 0, err
	}
	if !modified {
		conn.Rollback(ctx)
		return 0, nil
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (key, is_latest, is_deleted, value) VALUES (?, 1, 1, '')`,
		t.dataTable(),
	)
	res, err := conn.Exec(ctx, query, key)
	if err != nil {
		conn.Rollback(ctx)
		return 0, err
	}
	lastVersion, err := res.LastInsertId()
	if err != nil {
		conn.Rollback(ctx)
		return 0, err
	}

	for _, idx := range t.indexes {
		update := []index.Update{{Kind: index.Delete, Key: key, Version: lastVersion}}
		if err := idx.ApplyUpdates(ctx, conn, update); err != nil {
			conn.Rollback(ctx)
			return 0, err
		}
	}

	if err := conn.Commit(ctx); err != nil {
		return 0, err
	}

	var from *VersionedValue
	if hadValue {
		from = &VersionedValue{Value: lastValue, Version: version}
	}
	t.notify(Event{Kind: EventDataUpdates, Updates: []ItemEvent{{Key: key, From: from, To: nil}}})

	return lastVersion, nil
}
