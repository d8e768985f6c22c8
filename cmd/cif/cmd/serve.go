package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/cif/internal/httpapi"
	"github.com/jmylchreest/cif/internal/queue"
	"github.com/jmylchreest/cif/internal/scheduler"
	"github.com/jmylchreest/cif/internal/version"
	"github.com/jmylchreest/cif/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the HTTP read API and run scheduled ingestion",
	Long: `serve hosts the internal/httpapi read façade (sources, generations,
artifacts, diffs, search, deferred-disaggregation admin) and, in the same
process, a memqueue-backed worker pool plus an internal/scheduler instance
that triggers periodic ingestion for every source with a non-empty
cron_schedule.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "host to bind the HTTP API to")
	serveCmd.Flags().Int("port", 8080, "port to listen on")
	serveCmd.Flags().Bool("scheduler", true, "run the periodic per-source ingestion scheduler")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("scheduler.enabled", serveCmd.Flags().Lookup("scheduler"))
}

func runServe(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := worker.New(cat, fac, logger)
	workerErrCh := make(chan error, 1)
	go func() {
		workerErrCh <- mq.Subscribe(ctx, cfg.Queue.MaxAttempts, w.Handle)
	}()

	var sched *scheduler.Scheduler
	if viper.GetBool("scheduler.enabled") {
		sched = scheduler.New(cat, fac, logger, scheduler.Config{IntakeOptions: intakeOptions(cfg.Ingestion)})
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
	}

	serverConfig := httpapi.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
	}
	server := httpapi.NewServer(serverConfig, logger, version.Version)
	httpapi.RegisterHandlers(server, cat, mq)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		if sched != nil {
			sched.Stop()
		}
		mq.Stop()
		cancel()
	}()

	logger.Info("starting cif server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Bool("scheduler_enabled", sched != nil),
		slog.String("version", version.Version))

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	return <-workerErrCh
}
