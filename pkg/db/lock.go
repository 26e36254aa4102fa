package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockForUpdate applies a row-level write lock inside a transaction.
// SQLite serializes writers on its own and rejects FOR UPDATE syntax,
// so the clause is skipped there.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// AdvisoryXactLock serializes transactions that contend on a logical key
// rather than an existing row. FOR UPDATE over an empty result set locks
// nothing on postgres, so check-then-create sequences need this to keep
// two first writers from both missing the check. Held until commit or
// rollback. SQLite serializes writers on its own, so it is a no-op there.
func AdvisoryXactLock(tx *gorm.DB, key int64) error {
	if tx.Dialector.Name() == "sqlite" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", key).Error
}
