package index

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// testConn is a minimal standalone implementation of the Conn interface
// for these tests, so this package's tests don't need to depend on the
// table package (which itself depends on this one).
type testConn struct {
	db *sql.DB
}

func newTestConn(t *testing.T) *testConn {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=private")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &testConn{db: db}
}

func (c *testConn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

func (c *testConn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

func (c *testConn) QueryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	return c.db.QueryRowContext(ctx, query, args...), nil
}

func (c *testConn) ExecBatch(ctx context.Context, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func extractLastByte(pk, value []byte) ([]Key, error) {
	if len(value) == 0 {
		return nil, nil
	}
	return []Key{Key{value[len(value)-1]}}, nil
}

func TestIndexUpdateDiffsKeysAcrossVersions(t *testing.T) {
	ctx := context.Background()
	conn := newTestConn(t)

	idx := New("by_last_byte", "items", Options{WithoutRowid: true}, extractLastByte)
	if _, err := idx.CreateTable(ctx, conn); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	if err := idx.Update(ctx, conn, []byte("pk1"), []byte{1, 2, 3}, 1); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	result, err := idx.Scan(ctx, conn, ScanOptions{
		LowerKey: &ScanKey{IK: []byte{3}, PK: []byte{}},
		Count:    10,
		Order:    Asc,
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(result.Keys) != 1 || string(result.Keys[0].PK) != "pk1" {
		t.Fatalf("Scan() keys = %+v, want one pk1 entry", result.Keys)
	}

	// value changes: the old index key (3) should be gone, the new one
	// (9) should be present.
	if err := idx.Update(ctx, conn, []byte("pk1"), []byte{1, 2, 9}, 2); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	old, err := idx.Scan(ctx, conn, ScanOptions{
		LowerKey: &ScanKey{IK: []byte{3}, PK: []byte{}},
		HigherKey: &ScanKey{IK: []byte{3}, PK: []byte{0xff}},
		Count:     10,
		Order:     Asc,
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(old.Keys) != 0 {
		t.Errorf("stale index key 3 still present: %+v", old.Keys)
	}

	fresh, err := idx.Scan(ctx, conn, ScanOptions{
		LowerKey: &ScanKey{IK: []byte{9}, PK: []byte{}},
		Count:    10,
		Order:    Asc,
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(fresh.Keys) != 1 {
		t.Errorf("new index key 9 missing: %+v", fresh.Keys)
	}

	version, err := idx.DataVersion(ctx, conn)
	if err != nil {
		t.Fatalf("DataVersion() error = %v", err)
	}
	if version != 2 {
		t.Errorf("DataVersion() = %d, want 2", version)
	}
}

func TestIndexDeleteByPKRemovesAllKeys(t *testing.T) {
	ctx := context.Background()
	conn := newTestConn(t)

	idx := New("by_last_byte", "items", Options{WithoutRowid: true}, extractLastByte)
	if _, err := idx.CreateTable(ctx, conn); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	if err := idx.ApplyUpdates(ctx, conn, []Update{
		{Kind: Upsert, Key: []byte("pk1"), Value: []byte{7}, Version: 1},
	}); err != nil {
		t.Fatalf("ApplyUpdates(Upsert) error = %v", err)
	}
	if err := idx.ApplyUpdates(ctx, conn, []Update{
		{Kind: Delete, Key: []byte("pk1"), Version: 2},
	}); err != nil {
		t.Fatalf("ApplyUpdates(Delete) error = %v", err)
	}

	result, err := idx.Scan(ctx, conn, ScanOptions{Count: 10, Order: Asc})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(result.Keys) != 0 {
		t.Errorf("Scan() after delete = %+v, want empty", result.Keys)
	}

	// a delete advances the watermark exactly like an upsert does.
	version, err := idx.DataVersion(ctx, conn)
	if err != nil {
		t.Fatalf("DataVersion() error = %v", err)
	}
	if version != 2 {
		t.Errorf("DataVersion() after delete = %d, want 2", version)
	}
}

func TestIndexScanHasMoreTrimsToCount(t *testing.T) {
	ctx := context.Background()
	conn := newTestConn(t)

	idx := New("by_last_byte", "items", Options{WithoutRowid: true}, extractLastByte)
	if _, err := idx.CreateTable(ctx, conn); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		key := []byte{byte('a' + i)}
		if err := idx.Update(ctx, conn, key, []byte{1}, int64(i+1)); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	result, err := idx.Scan(ctx, conn, ScanOptions{Count: 3, Order: Asc})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(result.Keys) != 3 || !result.HasMore {
		t.Errorf("Scan() = %d keys, hasMore=%v, want 3 keys and hasMore=true", len(result.Keys), result.HasMore)
	}
}
