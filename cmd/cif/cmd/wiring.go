package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/config"
	"github.com/jmylchreest/cif/internal/database"
	"github.com/jmylchreest/cif/internal/database/migrations"
	"github.com/jmylchreest/cif/internal/factory"
	"github.com/jmylchreest/cif/internal/intake"
	"github.com/jmylchreest/cif/internal/queue"
)

// loadConfig reads the bound viper config into a config.Config, honoring
// --config plus the CIF_ environment prefix root.go already wired.
func loadConfig() (*config.Config, error) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// openCatalog opens the configured database, runs pending migrations, and
// returns a ready-to-use Catalog plus the underlying *database.DB so
// callers needing the raw connection (e.g. for a health check) can close it.
func openCatalog(cfg config.DatabaseConfig, logger *slog.Logger) (catalog.Catalog, *database.DB, error) {
	db, err := database.New(cfg, logger, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	if err := migrator.Up(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	return catalog.New(db.DB), db, nil
}

// newFactory wires a factory.Factory from the shared Catalog, Publisher,
// and the chunking defaults in cfg.Disaggregation.
func newFactory(cat catalog.Catalog, publisher queue.Publisher, cfg config.DisaggregationConfig, logger *slog.Logger) *factory.Factory {
	return factory.New(factory.Dependencies{
		Catalog:    cat,
		Publisher:  publisher,
		Logger:     logger,
		ChunkLines: cfg.DefaultChunkLines,
		Workers:    cfg.ChunkWorkers,
	})
}

// intakeOptions translates config.IngestionConfig into intake.Options.
func intakeOptions(cfg config.IngestionConfig) intake.Options {
	return intake.Options{
		BatchSize:       cfg.StageBatchSize,
		MemoryThreshold: int64(cfg.StageBufferThreshold),
	}
}
