package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Base carries the connection every storefront repository reads and writes
// through. It is either the pool or a transaction handed in by a service.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bind returns a copy of b on tx. A nil tx keeps the current connection.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// ForUpdate is DB with a row lock on the selected rows. Only postgres renders
// the lock; sqlite serializes writers on its own. It must run inside a transaction.
func (b Base) ForUpdate(ctx context.Context) *gorm.DB {
	q := b.DB(ctx)
	if q.Dialector != nil && q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}
