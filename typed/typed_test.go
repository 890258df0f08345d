package typed

import (
	"context"
	"testing"

	"vdb/key"
	"vdb/table"
)

type account struct {
	ID      int64  `vdb:"1"`
	Owner   string `vdb:"2"`
	Balance int64  `vdb:"3"`
}

func (a account) PrimaryKey() int64 { return a.ID }

func accountKeyOf(id int64) key.Key { return key.FromI64(id) }
func accountPKFrom(k key.Key) (int64, error) { return k.Int64() }

func newAccounts(t *testing.T) (*Table[account, int64], *table.Conn) {
	t.Helper()
	conn, err := table.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	accounts := New[account, int64]("accounts", accountKeyOf, accountPKFrom)
	accounts.AppendIndex("by_owner", func(pk int64, item *account) []key.Key {
		return []key.Key{key.FromComponents([]key.Component{key.BytesComponent([]byte(item.Owner))})}
	})
	if err := accounts.CreateTable(context.Background(), conn); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	return accounts, conn
}

func TestTypedInsertAndGet(t *testing.T) {
	ctx := context.Background()
	accounts, conn := newAccounts(t)

	if _, err := accounts.Insert(ctx, conn, &account{ID: 1, Owner: "ada", Balance: 100}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, version, ok, err := accounts.Get(ctx, conn, 1)
	if err != nil || !ok {
		t.Fatalf("Get() = %+v, %v, %v, %v", got, version, ok, err)
	}
	if got.Owner != "ada" || got.Balance != 100 {
		t.Errorf("Get() = %+v, want owner ada balance 100", got)
	}
}

func TestTypedBatchInsertReturnsLastVersion(t *testing.T) {
	ctx := context.Background()
	accounts, conn := newAccounts(t)

	items := []account{
		{ID: 1, Owner: "ada", Balance: 10},
		{ID: 2, Owner: "grace", Balance: 20},
		{ID: 3, Owner: "ada", Balance: 30},
	}
	last, err := accounts.BatchInsert(ctx, conn, items)
	if err != nil {
		t.Fatalf("BatchInsert() error = %v", err)
	}
	if last == 0 {
		t.Fatal("BatchInsert() returned version 0")
	}

	for _, item := range items {
		got, _, ok, err := accounts.Get(ctx, conn, item.ID)
		if err != nil || !ok || got.Balance != item.Balance {
			t.Errorf("Get(%d) = %+v, %v, %v, want balance %d", item.ID, got, ok, err, item.Balance)
		}
	}
}

func TestTypedGetByIndex(t *testing.T) {
	ctx := context.Background()
	accounts, conn := newAccounts(t)

	if _, err := accounts.Insert(ctx, conn, &account{ID: 1, Owner: "ada", Balance: 10}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := accounts.Insert(ctx, conn, &account{ID: 2, Owner: "ada", Balance: 20}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := accounts.Insert(ctx, conn, &account{ID: 3, Owner: "grace", Balance: 30}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	ownerKey := key.FromComponents([]key.Component{key.BytesComponent([]byte("ada"))})
	pairs, err := accounts.GetByIndex(ctx, conn, "by_owner", ownerKey, 10)
	if err != nil {
		t.Fatalf("GetByIndex() error = %v", err)
	}
	// GetByIndex has no upper bound, so grace's pair follows ada's two.
	if len(pairs) != 3 || string(pairs[1].IK) != string(ownerKey.Bytes()) || string(pairs[2].IK) == string(ownerKey.Bytes()) {
		t.Fatalf("GetByIndex() = %+v, want 2 pairs for owner ada, then grace's", pairs)
	}
}

func TestTypedDelete(t *testing.T) {
	ctx := context.Background()
	accounts, conn := newAccounts(t)

	if _, err := accounts.Insert(ctx, conn, &account{ID: 1, Owner: "ada", Balance: 10}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := accounts.Delete(ctx, conn, 1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, err := accounts.Get(ctx, conn, 1); err != nil || ok {
		t.Fatalf("Get() after delete = %v, %v, want absent", ok, err)
	}
}
