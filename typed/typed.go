// Package typed provides a strongly-typed facade over table.Table,
// binding the value codec (package value) and key codec (package key) so
// callers deal in Go structs and primary-key values rather than raw
// bytes.
package typed

import (
	"context"

	"vdb/key"
	"vdb/table"
	"vdb/table/index"
	"vdb/value"
)

// Item is a record type a Table can store: it knows its own primary key.
// Item itself carries no encoding methods - Table derives its wire codec
// via value.Derive, the same division of labor the untyped table package
// keeps between storage and codec.
type Item[PK any] interface {
	PrimaryKey() PK
}

// Table binds a Go struct type Item (with primary key type PK) to an
// underlying byte-oriented table.Table. keyOf/pkFrom convert between PK
// and the order-preserving key.Key encoding; most callers build these
// with a single key.FromI64/key.FromComponents call and its inverse.
type Table[I Item[PK], PK any] struct {
	table  *table.Table
	codec  *value.StructCodec[I]
	keyOf  func(PK) key.Key
	pkFrom func(key.Key) (PK, error)
}

// New returns a typed table named name, not yet materialized - call
// CreateTable before using it.
func New[I Item[PK], PK any](name string, keyOf func(PK) key.Key, pkFrom func(key.Key) (PK, error)) *Table[I, PK] {
	return &Table[I, PK]{
		table:  table.New(name),
		codec:  value.Derive[I](),
		keyOf:  keyOf,
		pkFrom: pkFrom,
	}
}

// NewWithTable adapts an already-constructed table.Table (e.g. one
// shared with other typed facades, or pre-configured with observers).
func NewWithTable[I Item[PK], PK any](t *table.Table, keyOf func(PK) key.Key, pkFrom func(key.Key) (PK, error)) *Table[I, PK] {
	return &Table[I, PK]{table: t, codec: value.Derive[I](), keyOf: keyOf, pkFrom: pkFrom}
}

// CreateTable materializes the backing table and its indexes.
func (t *Table[I, PK]) CreateTable(ctx context.Context, conn *table.Conn) error {
	return t.table.CreateTable(ctx, conn)
}

// AppendIndex attaches an index whose extractor works in terms of the
// typed primary key and item rather than raw bytes. f must be pure, same
// as the byte-level index.Extractor - it's invoked during catch-up
// replay as well as on every write.
func (t *Table[I, PK]) AppendIndex(name string, f func(pk PK, item *I) []key.Key) {
	t.table.AppendIndex(name, func(pkBytes, valueBytes []byte) ([]index.Key, error) {
		var item I
		if err := t.codec.Unmarshal(valueBytes, &item); err != nil {
			return nil, err
		}
		pk, err := t.pkFrom(key.FromBytes(pkBytes))
		if err != nil {
			return nil, err
		}

		keys := f(pk, &item)
		out := make([]index.Key, len(keys))
		for i, k := range keys {
			out[i] = index.Key(k.Bytes())
		}
		return out, nil
	})
}

// AppendObserver registers a raw byte-level observer on the underlying
// table.
func (t *Table[I, PK]) AppendObserver(o table.Observer) {
	t.table.AppendObserver(o)
}

// Insert writes item as a new version, returning its version.
func (t *Table[I, PK]) Insert(ctx context.Context, conn *table.Conn, item *I) (int64, error) {
	keyBytes := t.keyOf((*item).PrimaryKey()).Bytes()
	valueBytes := t.codec.Marshal(item)
	return t.table.Insert(ctx, conn, keyBytes, valueBytes)
}

// BatchInsert writes every item as a new version within a single
// transaction, delivering one observer event for the whole batch, and
// returns the last item's version.
func (t *Table[I, PK]) BatchInsert(ctx context.Context, conn *table.Conn, items []I) (int64, error) {
	pairs := make([]table.KeyValue, len(items))
	for i := range items {
		pairs[i] = table.KeyValue{
			Key:   t.keyOf(items[i].PrimaryKey()).Bytes(),
			Value: t.codec.Marshal(&items[i]),
		}
	}
	return t.table.InsertBatch(ctx, conn, pairs)
}

// Delete tombstones pk's current row, returning the tombstone's version.
func (t *Table[I, PK]) Delete(ctx context.Context, conn *table.Conn, pk PK) (int64, error) {
	return t.table.Delete(ctx, conn, t.keyOf(pk).Bytes())
}

// Get returns pk's current value and version, decoded into an I.
func (t *Table[I, PK]) Get(ctx context.Context, conn *table.Conn, pk PK) (I, int64, bool, error) {
	var zero I
	v, ok, err := t.table.Get(ctx, conn, t.keyOf(pk).Bytes())
	if err != nil || !ok {
		return zero, 0, ok, err
	}
	var item I
	if err := t.codec.Unmarshal(v.Value, &item); err != nil {
		return zero, 0, false, err
	}
	return item, v.Version, true, nil
}

// GetByIndex returns up to count (index key, primary key) pairs at or
// after key in the named index.
func (t *Table[I, PK]) GetByIndex(ctx context.Context, conn *table.Conn, indexName string, ik key.Key, count uint32) ([]index.IKPK, error) {
	return t.table.GetByIndex(ctx, conn, indexName, ik.Bytes(), count)
}
