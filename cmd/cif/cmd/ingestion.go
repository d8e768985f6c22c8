package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/cif/internal/models"
	"github.com/jmylchreest/cif/internal/queue"
)

var ingestionCmd = &cobra.Command{
	Use:   "ingestion <source_id>",
	Short: "Run one intake and disaggregation cycle for a source",
	Long: `ingestion stages every artifact the source's connector currently lists,
promotes any changes into a new generation, and — if anything was
promoted — dispatches disaggregation over the new generation's artifacts
according to the source's configured dispatch mode.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestion,
}

func init() {
	rootCmd.AddCommand(ingestionCmd)
}

func runIngestion(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	sourceID, err := models.ParseHexID(args[0])
	if err != nil {
		return fmt.Errorf("parsing source id: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cat, db, err := openCatalog(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	source, err := cat.GetSource(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("loading source: %w", err)
	}
	if source == nil {
		return fmt.Errorf("no such source: %s", sourceID)
	}

	var publisher queue.Publisher
	if source.DispatchMode == models.DispatchDeferred || source.DispatchMode == models.DispatchDeferredChunked {
		mq := queue.NewMemQueue(cfg.Queue.MaxAttempts)
		publisher = mq
		logger.Warn("source uses deferred dispatch but no worker is attached to this process; " +
			"messages go to an in-process queue that nothing drains here, use `cif serve` to run producer and worker together")
	}

	fac := newFactory(cat, publisher, cfg.Disaggregation, logger)
	summary, err := fac.RunIngestionCycle(ctx, source, intakeOptions(cfg.Ingestion))
	if err != nil {
		return fmt.Errorf("running ingestion cycle: %w", err)
	}

	logger.Info("ingestion cycle complete",
		slog.String("source_id", sourceID.String()),
		slog.Int("artifacts_processed", summary.ArtifactsProcessed),
		slog.Int("fragments_created", summary.FragmentsCreated),
		slog.Int("deferred_published", summary.DeferredPublished))
	return nil
}
