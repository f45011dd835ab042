package gorm

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_notes",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Note{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("notes")
			},
		},
		{
			ID: "002_reminders",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Reminder{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("reminders")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("run gormigrate migrations: %w", err)
	}
	return nil
}
