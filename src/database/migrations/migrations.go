// Package migrations holds data migrations that run after the schema is auto-migrated.
package migrations

import (
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DataMigration records an applied data migration.
type DataMigration struct {
	ID        string    `gorm:"primaryKey;size:200;column:id"`
	AppliedAt time.Time `gorm:"not null;column:applied_at"`
}

func (DataMigration) TableName() string { return "data_migrations" }

type dataMigration struct {
	id string
	fn func(*gorm.DB) error
}

// Ids are stable; append new entries at the bottom.
var dataMigrations = []dataMigration{
	{id: "00001_backfill_order_epochs", fn: backfillOrderEpochs},
}

// Run applies every pending data migration in order.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	for _, m := range dataMigrations {
		if err := RunOnce(db, m.id, m.fn); err != nil {
			return err
		}
	}
	return nil
}

// RunOnce runs fn inside a transaction unless migrationID is already recorded.
// The record is written in the same transaction, so a failed fn leaves no trace.
func RunOnce(db *gorm.DB, migrationID string, fn func(*gorm.DB) error) error {
	if db == nil {
		return nil
	}
	if migrationID == "" {
		return errors.New("migration id is empty")
	}
	if fn == nil {
		return fmt.Errorf("migration %q has nil fn", migrationID)
	}

	if err := db.AutoMigrate(&DataMigration{}); err != nil {
		return fmt.Errorf("ensure data migrations table: %w", err)
	}

	applied := false
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&DataMigration{}).Where("id = ?", migrationID).Count(&count).Error; err != nil {
			return fmt.Errorf("check migration %q: %w", migrationID, err)
		}
		if count > 0 {
			return nil
		}

		if err := fn(tx); err != nil {
			return fmt.Errorf("run migration %q: %w", migrationID, err)
		}

		if err := tx.Create(&DataMigration{ID: migrationID, AppliedAt: time.Now().UTC()}).Error; err != nil {
			return fmt.Errorf("record migration %q: %w", migrationID, err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}

	if applied {
		logger.WithField("migration", migrationID).Info("Data migration applied")
	}
	return nil
}
