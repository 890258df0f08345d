package table

import (
	"context"
	"fmt"

	"vdb/table/index"
)

// Insert writes value at key as a new version, returning the new row's
// version. Equivalent to InsertBatch with a single pair, wrapped in its
// own transaction.
func (t *Table) Insert(ctx context.Context, conn *Conn, key, value []byte) (int64, error) {
	if err := conn.Begin(ctx); err != nil {
		return 0, err
	}

	v, event, err := t.innerInsert(ctx, conn, key, value)
	if err != nil {
		conn.Rollback(ctx)
		return 0, err
	}

	if err := conn.Commit(ctx); err != nil {
		return 0, err
	}

	t.notify(Event{Kind: EventDataUpdates, Updates: []ItemEvent{event}})
	return v, nil
}

// KeyValue is one (key, value) pair for InsertBatch.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// InsertBatch writes every pair as a new version, all within a single
// transaction, and delivers one EventDataUpdates covering the whole batch.
// It returns the last pair's version.
func (t *Table) InsertBatch(ctx context.Context, conn *Conn, pairs []KeyValue) (int64, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	if err := conn.Begin(ctx); err != nil {
		return 0, err
	}

	var last int64
	events := make([]ItemEvent, 0, len(pairs))
	for _, kv := range pairs {
		v, event, err := t.innerInsert(ctx, conn, kv.Key, kv.Value)
		if err != nil {
			conn.Rollback(ctx)
			return 0, err
		}
		last = v
		events = append(events, event)
	}

	if err := conn.Commit(ctx); err != nil {
		return 0, err
	}

	t.notify(Event{Kind: EventDataUpdates, Updates: events})
	return last, nil
}

// innerInsert writes one new version of key and drives every attached
// index's update, all within the caller's already-open transaction.
func (t *Table) innerInsert(ctx context.Context, conn *Conn, key, value []byte) (int64, ItemEvent, error) {
	var from *VersionedValue
	if prev, ok, err := t.Get(ctx, conn, key); err != nil {
		return 0, ItemEvent{}, err
	} else if ok {
		from = &prev
	}
	// the latest row may be a tombstone, which Get doesn't report but which
	// still holds is_latest = 1
	if _, err := t.updateLastToNotLatest(ctx, conn, key); err != nil {
		return 0, ItemEvent{}, err
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (key, is_latest, is_deleted, value) VALUES (?, 1, 0, ?)`,
		t.dataTable(),
	)
	res, err := conn.Exec(ctx, query, key, value)
	if err != nil {
		return 0, ItemEvent{}, err
	}
	v, err := res.LastInsertId()
	if err != nil {
		return 0, ItemEvent{}, err
	}

	for _, idx := range t.indexes {
		update := []index.Update{{Kind: index.Upsert, Key: key, Value: value, Version: v}}
		if err := idx.ApplyUpdates(ctx, conn, update); err != nil {
			return 0, ItemEvent{}, err
		}
	}

	event := ItemEvent{
		Key:  key,
		From: from,
		To:   &VersionedValue{Value: value, Version: v},
	}
	return v, event, nil
}
