// Package repository holds the gorm queries behind every service.
package repository

import "gorm.io/gorm"

// insert runs the create inside its own savepoint when db is already in a
// transaction, so a unique violation leaves the outer transaction usable for
// the follow-up read.
func insert(db *gorm.DB, value interface{}) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(value).Error
	})
}
