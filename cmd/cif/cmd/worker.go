package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/cif/internal/queue"
	"github.com/jmylchreest/cif/internal/worker"
)

var workerMaxMessages int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Subscribe to deferred disaggregation messages and process them",
	Long: `worker subscribes to the configured message bus and runs each delivered
DeferredDisaggregation message through extraction until SIGINT/SIGTERM,
at which point in-flight handlers are allowed to complete before the
process exits.

The default memqueue bus is in-process only, so a standalone worker
process has nothing to consume unless something in the same process
published to it; this command exists for a future out-of-process bus
driver and is exercised end-to-end by ` + "`cif serve`" + `, which runs
producer and worker together.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().IntVar(&workerMaxMessages, "max-messages", 4, "maximum concurrently in-flight handlers")
	mustBindPFlag("queue.max_concurrency", workerCmd.Flags().Lookup("max-messages"))
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cat, db, err := openCatalog(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	mq := queue.NewMemQueue(cfg.Queue.MaxAttempts)
	fac := newFactory(cat, mq, cfg.Disaggregation, logger)
	w := worker.New(cat, fac, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal, draining in-flight handlers", slog.String("signal", sig.String()))
		mq.Stop()
		cancel()
	}()

	logger.Info("worker subscribing", slog.Int("max_messages", workerMaxMessages))
	return mq.Subscribe(ctx, workerMaxMessages, w.Handle)
}
