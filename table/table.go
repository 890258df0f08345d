package table

import (
	"context"
	"fmt"

	"vdb/table/index"
)

// VersionedValue pairs a stored value with the rowid/version it was
// written at.
type VersionedValue struct {
	Value   []byte
	Version int64
}

// ItemEvent describes one key's change: From is its previous value (nil
// if the key didn't exist), To is its new value (nil if it was deleted).
type ItemEvent struct {
	Key  []byte
	From *VersionedValue
	To   *VersionedValue
}

// EventKind tags an Event's shape.
type EventKind int

const (
	// EventTableCreated fires once per CreateTable call.
	EventTableCreated EventKind = iota
	// EventDataUpdates carries a batch of ItemEvents from one write.
	EventDataUpdates
)

// Event is delivered to every Observer on table changes.
type Event struct {
	Kind    EventKind
	Updates []ItemEvent // only set for EventDataUpdates
}

// Observer is notified of table events. Observers run synchronously on
// the writer's goroutine, after the write's transaction commits.
type Observer func(Event)

// Table is a versioned, byte-key/byte-value table: every write gets a
// monotonically increasing rowid/version, the current row for a key is
// marked is_latest, and deletes are tombstones rather than row removal -
// the full history survives under is_latest = 0.
type Table struct {
	name      string
	indexes   []*index.Index
	observers []Observer
}

// New returns an empty Table named name. Call CreateTable before using it.
func New(name string) *Table {
	return &Table{name: name}
}

// AppendIndex attaches a secondary index driven by extractor. Indexes
// must be appended before CreateTable is called so CreateTable can
// materialize (and catch up) their backing tables.
func (t *Table) AppendIndex(name string, extractor index.Extractor) {
	t.indexes = append(t.indexes, index.New(name, t.name, index.Options{WithoutRowid: true}, extractor))
}

// AppendObserver registers an observer for subsequent writes.
func (t *Table) AppendObserver(o Observer) {
	t.observers = append(t.observers, o)
}

func (t *Table) dataTable() string { return fmt.Sprintf("%s_$_data", t.name) }
func (t *Table) confTable() string { return fmt.Sprintf("%s_$_conf", t.name) }

func (t *Table) notify(e Event) {
	for _, o := range t.observers {
		o(e)
	}
}

// updateLastToNotLatest clears is_latest on key's current row, if any,
// reporting whether a row was modified.
func (t *Table) updateLastToNotLatest(ctx context.Context, conn *Conn, key []byte) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET is_latest = 0 WHERE key = ? AND is_latest = 1`, t.dataTable())
	res, err := conn.Exec(ctx, query, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

// updateLastToNotLatestWithVersion is the optimistic-concurrency variant:
// it only clears is_latest when the current row's rowid still matches
// version, so a delete racing a concurrent write fails safely.
func (t *Table) updateLastToNotLatestWithVersion(ctx context.Context, conn *Conn, key []byte, version int64) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET is_latest = 0 WHERE rowid = ? AND key = ? AND is_latest = 1`, t.dataTable())
	res, err := conn.Exec(ctx, query, version, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n != 0, nil
}
