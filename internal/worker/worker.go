// Package worker processes DeferredDisaggregation messages delivered by
// an internal/queue.Subscriber: resolve the referenced row's source,
// generation, and artifact, run the named extractor against the message's
// byte range (if any), persist the resulting fragments, and transition
// the row to DONE or FAILED.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/extractor"
	"github.com/jmylchreest/cif/internal/factory"
	"github.com/jmylchreest/cif/internal/models"
	"github.com/jmylchreest/cif/internal/queue"
)

// Worker dispatches delivered queue messages to the extraction + persist
// pipeline a DEFERRED/DEFERRED_CHUNKED message represents, grounded on
// internal/scheduler/executor.go's Executor.Execute: resolve the unit of
// work, run it, record the outcome, classify failures into retry-or-not.
type Worker struct {
	Catalog catalog.Catalog
	Factory *factory.Factory
	Logger  *slog.Logger
}

// New returns a Worker ready to Handle messages.
func New(cat catalog.Catalog, fac *factory.Factory, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{Catalog: cat, Factory: fac, Logger: logger}
}

// Handle implements queue.Handler: a nil return acks the message, a
// non-nil return requests redelivery (nack). Per spec.md §4.6, parse
// failures and missing-reference lookups are terminal (discarded, i.e.
// acked) rather than retried, since redelivering them can never succeed.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	var wire models.Message
	if err := json.Unmarshal(msg.Payload, &wire); err != nil {
		w.Logger.Error("discarding unparseable message", slog.Any("error", err))
		return nil
	}

	deliveryAttempt := msg.DeliveryAttempt
	if deliveryAttempt == 0 {
		deliveryAttempt = 1
	}

	row, err := w.Catalog.GetDeferredByID(ctx, wire.ID)
	if err != nil {
		w.Logger.Error("discarding message: lookup failed",
			slog.Int64("deferred_id", wire.ID), slog.Any("error", err))
		return nil
	}
	if row == nil {
		w.Logger.Warn("discarding message: no such deferred row", slog.Int64("deferred_id", wire.ID))
		return nil
	}

	source, err := w.Catalog.GetSource(ctx, row.SourceID)
	if err != nil || source == nil {
		w.markDiscarded(ctx, row, deliveryAttempt, "source not found")
		return nil
	}
	artifact, err := w.Catalog.GetArtifactByID(ctx, row.ArtifactID)
	if err != nil || artifact == nil {
		w.markDiscarded(ctx, row, deliveryAttempt, "artifact not found")
		return nil
	}

	ex, err := w.Factory.BuildExtractor(row.ExtractorType)
	if err != nil {
		w.markDiscarded(ctx, row, deliveryAttempt, fmt.Sprintf("extractor %s not resolvable", row.ExtractorType))
		return nil
	}

	if err := w.disaggregateOne(ctx, source, artifact, row, ex); err != nil {
		if k := models.ErrorKind(err); k == models.KindNotFound || k == models.KindValidation {
			w.markDiscarded(ctx, row, deliveryAttempt, err.Error())
			return nil
		}
		w.Logger.Error("deferred disaggregation failed, will retry",
			slog.Int64("deferred_id", row.ID), slog.Any("error", err))
		if markErr := w.Catalog.MarkFailed(ctx, row.ID, deliveryAttempt, err.Error()); markErr != nil {
			w.Logger.Error("failed to record deferred failure", slog.Any("error", markErr))
		}
		return err
	}

	if err := w.Catalog.MarkDone(ctx, row.ID, deliveryAttempt); err != nil {
		return fmt.Errorf("marking deferred disaggregation %d done: %w", row.ID, err)
	}
	return nil
}

func (w *Worker) markDiscarded(ctx context.Context, row *models.DeferredDisaggregation, deliveryAttempt int, reason string) {
	w.Logger.Warn("discarding message", slog.Int64("deferred_id", row.ID), slog.String("reason", reason))
	if err := w.Catalog.MarkFailed(ctx, row.ID, deliveryAttempt, reason); err != nil {
		w.Logger.Error("failed to record discard", slog.Any("error", err))
	}
}

// disaggregateOne runs one extractor against one artifact's referenced
// content (the whole artifact, or one byte range for a chunked message)
// and persists the resulting fragments and keys.
func (w *Worker) disaggregateOne(ctx context.Context, source *models.Source, artifact *models.Artifact, row *models.DeferredDisaggregation, ex extractor.Extractor) error {
	conn, err := w.Factory.BuildConnector(source)
	if err != nil {
		return fmt.Errorf("building connector: %w", err)
	}

	in := extractor.Input{
		ArtifactID:   artifact.ID,
		GenerationID: row.GenerationID,
		FragmentID:   row.FragmentID,
	}

	if row.ByteRangeEnd > 0 || row.ByteRangeStart > 0 {
		content, err := conn.GetArtifactChunk(ctx, artifact.ExternalID, row.ByteRangeStart, row.ByteRangeEnd, artifact.Version)
		if err != nil {
			return fmt.Errorf("reading chunk: %w", err)
		}
		in.Content = content
		in.ByteRangeStart = row.ByteRangeStart
		in.ByteRangeEnd = row.ByteRangeEnd
	} else {
		rc, _, err := conn.GetArtifact(ctx, artifact.ExternalID, artifact.Version)
		if err != nil {
			return fmt.Errorf("reading artifact: %w", err)
		}
		content, err := io.ReadAll(rc)
		closeErr := rc.Close()
		if err != nil {
			return fmt.Errorf("reading artifact: %w", err)
		}
		if closeErr != nil {
			return fmt.Errorf("closing artifact: %w", closeErr)
		}
		in.Content = content
	}

	fragments, err := ex.CalcFragments(in)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", ex.Type(), err)
	}
	if len(fragments) == 0 {
		return nil
	}

	keyRules, err := w.Factory.BuildKeyRules(source)
	if err != nil {
		return err
	}
	var keys []models.FragmentKey
	if rule, ok := keyRules[ex.Type()]; ok {
		for _, f := range fragments {
			ks, err := rule.CalcFragmentKeys(artifact.ExternalID, f)
			if err != nil {
				return fmt.Errorf("computing fragment keys: %w", err)
			}
			keys = append(keys, ks...)
		}
	}

	if err := w.Catalog.CreateFragments(ctx, fragments, 0); err != nil {
		return fmt.Errorf("persisting fragments: %w", err)
	}
	if err := w.Catalog.CreateFragmentKeys(ctx, keys, 0); err != nil {
		return fmt.Errorf("persisting fragment keys: %w", err)
	}
	return nil
}
