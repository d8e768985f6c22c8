// Package migrations provides database migration management for cif.
package migrations

import (
	"github.com/jmylchreest/cif/internal/models"
	"gorm.io/gorm"
)

// AllMigrations returns all registered migrations in order.
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
		migration002Indexes(),
	}
}

// migration001Schema creates all database tables using GORM AutoMigrate.
func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create all catalog tables",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.Source{},
				&models.StageRow{},
				&models.Artifact{},
				&models.Generation{},
				&models.Fragment{},
				&models.FragmentKey{},
				&models.DeferredDisaggregation{},
			)
		},
		Down: func(tx *gorm.DB) error {
			tables := []string{
				"deferred_disaggregation",
				"fragment_key",
				"fragment",
				"generation",
				"artifact",
				"stage",
				"source",
			}
			for _, table := range tables {
				if tx.Migrator().HasTable(table) {
					if err := tx.Migrator().DropTable(table); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}

// migration002Indexes adds the secondary indexes named in the persisted-state
// contract that GORM's struct tags alone don't express: the lookup index
// backing "latest generation per artifact" and a token index over
// fragment.text_content that extractor-driven search scans against.
//
// Stage has no GORM model index tags at all (it is an append-only staging
// table scanned sequentially during promotion, never searched by key), so it
// isn't touched here.
func migration002Indexes() Migration {
	return Migration{
		Version:     "002",
		Description: "Add generation lookup and fragment text search indexes",
		Up: func(tx *gorm.DB) error {
			if !tx.Migrator().HasIndex(&models.Generation{}, "idx_generation_source_artifact") {
				if err := tx.Migrator().CreateIndex(&models.Generation{}, "idx_generation_source_artifact"); err != nil {
					return err
				}
			}
			if !tx.Migrator().HasIndex(&models.Fragment{}, "idx_fragment_text_content") {
				if err := tx.Migrator().CreateIndex(&models.Fragment{}, "idx_fragment_text_content"); err != nil {
					return err
				}
			}
			return nil
		},
		Down: func(tx *gorm.DB) error {
			if tx.Migrator().HasIndex(&models.Fragment{}, "idx_fragment_text_content") {
				if err := tx.Migrator().DropIndex(&models.Fragment{}, "idx_fragment_text_content"); err != nil {
					return err
				}
			}
			if tx.Migrator().HasIndex(&models.Generation{}, "idx_generation_source_artifact") {
				if err := tx.Migrator().DropIndex(&models.Generation{}, "idx_generation_source_artifact"); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
