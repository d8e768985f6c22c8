// Package scheduler periodically triggers Source ingestion cycles on their
// configured cron schedule, grounded on the timing engine of
// internal/http (formerly internal/scheduler)'s job scheduler: robfig/cron
// as the timing engine, a background sync loop that re-reads schedules from
// the database so edits to a Source's CronSchedule take effect without a
// restart, and a normalizing parser that accepts both the 6-field (with
// seconds) format and legacy 7-field-with-year expressions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/factory"
	"github.com/jmylchreest/cif/internal/intake"
	"github.com/jmylchreest/cif/internal/models"
)

// NormalizeCronExpression normalizes a cron expression to 6-field format.
// It accepts both 6-field (sec min hour dom month dow) and legacy 7-field
// (with a trailing year) formats; the year field is validated but dropped
// since robfig/cron has no year component.
func NormalizeCronExpression(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", fmt.Errorf("empty cron expression")
	}
	if strings.HasPrefix(expr, "@") {
		return expr, nil
	}
	fields := strings.Fields(expr)
	switch len(fields) {
	case 6:
		return expr, nil
	case 7:
		yearField := fields[6]
		if !isValidYearField(yearField) {
			return "", fmt.Errorf("invalid year field %q: must be * or a valid year/range", yearField)
		}
		return strings.Join(fields[:6], " "), nil
	default:
		return "", fmt.Errorf("invalid cron expression: expected 6 or 7 fields, got %d", len(fields))
	}
}

func isValidYearField(field string) bool {
	if field == "" {
		return false
	}
	for _, r := range field {
		if !((r >= '0' && r <= '9') || r == ',' || r == '-' || r == '/' || r == '*') {
			return false
		}
	}
	return true
}

// Config holds scheduler tuning parameters.
type Config struct {
	// SyncInterval is how often the scheduler re-reads Source.CronSchedule
	// from the catalog to pick up additions, edits, and removals.
	SyncInterval time.Duration
	// IntakeOptions is passed through to every triggered
	// factory.Factory.RunIngestionCycle call.
	IntakeOptions intake.Options
}

// DefaultConfig returns sensible defaults: a one-minute sync interval and
// zero-value (package-default) intake options.
func DefaultConfig() Config {
	return Config{SyncInterval: time.Minute}
}

// Scheduler triggers factory.Factory.RunIngestionCycle for every Source
// with a non-empty CronSchedule, on that source's own schedule. It
// periodically re-syncs from the catalog so schedule changes take effect
// without restarting the process.
type Scheduler struct {
	mu sync.Mutex

	cat     catalog.Catalog
	fac     *factory.Factory
	logger  *slog.Logger
	config  Config
	parser  cron.Parser
	cronSvc *cron.Cron

	entryMap map[string]cron.EntryID
	// running tracks source IDs with an ingestion cycle currently in
	// flight, so a slow cycle's cron tick doesn't overlap itself.
	running map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Scheduler that triggers ingestion cycles through fac using
// Sources read from cat.
func New(cat catalog.Catalog, fac *factory.Factory, logger *slog.Logger, config Config) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.SyncInterval <= 0 {
		config.SyncInterval = DefaultConfig().SyncInterval
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cronSvc := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Scheduler{
		cat:      cat,
		fac:      fac,
		logger:   logger,
		config:   config,
		parser:   parser,
		cronSvc:  cronSvc,
		entryMap: make(map[string]cron.EntryID),
		running:  make(map[string]bool),
	}
}

// Start loads the current schedule set, starts the cron engine, and begins
// the background sync loop. It returns once the first load completes.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.ctx != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if err := s.sync(s.ctx); err != nil {
		s.logger.Error("initial schedule sync failed", slog.Any("error", err))
	}

	s.cronSvc.Start()

	s.wg.Add(1)
	go s.syncLoop()

	s.mu.Lock()
	entryCount := len(s.entryMap)
	s.mu.Unlock()
	s.logger.Info("scheduler started",
		slog.Duration("sync_interval", s.config.SyncInterval),
		slog.Int("initial_entries", entryCount))
	return nil
}

// Stop cancels the sync loop and stops the cron engine, waiting for any
// in-flight ingestion cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	stopCtx := s.cronSvc.Stop()
	s.mu.Unlock()

	<-stopCtx.Done()
	s.wg.Wait()

	s.mu.Lock()
	s.ctx, s.cancel = nil, nil
	s.mu.Unlock()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) syncLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.sync(s.ctx); err != nil {
				s.logger.Error("schedule sync failed", slog.Any("error", err))
			}
		}
	}
}

// sync reads every Source from the catalog, upserts a cron entry for each
// one with a non-empty CronSchedule, and removes entries for sources that
// no longer have one (deleted, edited to clear the field, or gone).
func (s *Scheduler) sync(ctx context.Context) error {
	sources, err := s.cat.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(sources))
	for _, source := range sources {
		if source.CronSchedule == "" {
			continue
		}
		key := source.ID.String()
		seen[key] = true
		if err := s.upsertLocked(key, source); err != nil {
			s.logger.Error("invalid source cron schedule",
				slog.String("source_id", key),
				slog.String("cron", source.CronSchedule),
				slog.Any("error", err))
		}
	}

	for key, entryID := range s.entryMap {
		if !seen[key] {
			s.cronSvc.Remove(entryID)
			delete(s.entryMap, key)
			s.logger.Debug("removed schedule", slog.String("source_id", key))
		}
	}
	return nil
}

// upsertLocked adds or replaces the cron entry for one source. Callers must
// hold s.mu.
func (s *Scheduler) upsertLocked(key string, source *models.Source) error {
	normalized, err := NormalizeCronExpression(source.CronSchedule)
	if err != nil {
		return err
	}
	schedule, err := s.parser.Parse(normalized)
	if err != nil {
		return fmt.Errorf("parsing cron expression: %w", err)
	}

	if existingID, ok := s.entryMap[key]; ok {
		entry := s.cronSvc.Entry(existingID)
		if entry.Valid() && entry.Schedule.Next(time.Now()).Equal(schedule.Next(time.Now())) {
			return nil
		}
		s.cronSvc.Remove(existingID)
		delete(s.entryMap, key)
	}

	// source is captured by value from the slice sync() iterates; copy the
	// ID and Name so the closure doesn't outlive a reused loop variable.
	sourceID, sourceName := source.ID, source.Name
	entryID, err := s.cronSvc.AddFunc(normalized, func() { s.trigger(sourceID, sourceName) })
	if err != nil {
		return fmt.Errorf("adding cron entry: %w", err)
	}
	s.entryMap[key] = entryID
	s.logger.Debug("scheduled source",
		slog.String("source_id", key),
		slog.String("cron", source.CronSchedule),
		slog.Time("next_run", schedule.Next(time.Now())))
	return nil
}

// trigger runs one ingestion cycle for sourceID, skipping the tick entirely
// if a previous cycle for the same source is still running.
func (s *Scheduler) trigger(sourceID models.HexID, sourceName string) {
	key := sourceID.String()

	s.mu.Lock()
	if s.running[key] {
		s.mu.Unlock()
		s.logger.Warn("skipping overlapping ingestion cycle",
			slog.String("source_id", key), slog.String("source", sourceName))
		return
	}
	s.running[key] = true
	ctx := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, key)
		s.mu.Unlock()
	}()

	source, err := s.cat.GetSource(ctx, sourceID)
	if err != nil {
		s.logger.Error("loading source for scheduled ingestion",
			slog.String("source_id", key), slog.Any("error", err))
		return
	}
	if source == nil {
		s.logger.Warn("scheduled source no longer exists", slog.String("source_id", key))
		return
	}

	s.logger.Info("triggering scheduled ingestion", slog.String("source_id", key), slog.String("source", sourceName))
	summary, err := s.fac.RunIngestionCycle(ctx, source, s.config.IntakeOptions)
	if err != nil {
		s.logger.Error("scheduled ingestion cycle failed",
			slog.String("source_id", key), slog.Any("error", err))
		return
	}
	s.logger.Info("scheduled ingestion cycle complete",
		slog.String("source_id", key),
		slog.Int("artifacts_processed", summary.ArtifactsProcessed),
		slog.Int("fragments_created", summary.FragmentsCreated),
		slog.Int("deferred_published", summary.DeferredPublished))
}
