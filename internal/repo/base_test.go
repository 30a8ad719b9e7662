package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return conn
}

func TestBaseDBBindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "cart")
	withCtx := base.DB(ctx)
	if withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}
	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseBindSwapsConnection(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if got := base.Bind(nil); got.db != db {
		t.Fatalf("nil tx must keep the pool connection")
	}

	tx := db.Begin()
	defer tx.Rollback()
	bound := base.Bind(tx)
	if bound.db != tx {
		t.Fatalf("expected bound base to use the transaction")
	}
	if base.db != db {
		t.Fatalf("binding must not change the original base")
	}
}

func TestBaseForUpdateSkipsLockOnSQLite(t *testing.T) {
	base := NewBase(newTestDB(t))

	q := base.ForUpdate(context.Background())
	if _, ok := q.Statement.Clauses["FOR"]; ok {
		t.Fatalf("sqlite queries must not carry a FOR UPDATE clause")
	}
}
