// Package intake drives one Connector's ListArtifacts sequence into the
// stage table and promotes the resulting batches into the catalog,
// implementing the single-pass-over-a-source procedure a scheduled or
// on-demand ingestion run executes for one Source.
package intake

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/connector"
	"github.com/jmylchreest/cif/internal/models"
	"github.com/jmylchreest/cif/pkg/diskslice"
)

// Outcome classifies the result of one Intake call.
type Outcome string

const (
	// NoChange means either no artifacts were staged, or staging produced
	// no net membership change against the source's latest generation.
	NoChange Outcome = "no_change"
	// Promoted means at least one batch was promoted into a new generation.
	Promoted Outcome = "promoted"
)

// Options configures buffering/batching behaviour, sourced from
// config.IngestionConfig.
type Options struct {
	// BatchSize caps how many staged rows accumulate before one batch is
	// flushed to the stage table.
	BatchSize int
	// MemoryThreshold is the in-memory byte budget before diskslice spills
	// the in-flight batch buffer to disk.
	MemoryThreshold int64
	// TempDir is where diskslice writes its spill file, if any.
	TempDir string
	// Now, if set, overrides the "current time" captured as created_on
	// (tests only; production callers leave this nil).
	Now func() models.Time
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return catalog.PromotionBatchSize
}

// Intake runs the six-step ingestion procedure for one Source: stage every
// artifact the Connector currently reports, diff that against the
// source's latest generation, and promote each staged batch if the diff
// shows a net change.
func Intake(ctx context.Context, cat catalog.Catalog, conn connector.Connector, source *models.Source, opts Options) (*models.Generation, Outcome, error) {
	if source == nil {
		return nil, "", fmt.Errorf("source is nil")
	}

	createdOn := models.Now()
	if opts.Now != nil {
		createdOn = opts.Now()
	}
	stageID := uuid.NewString()

	numBatches, err := stageArtifacts(ctx, cat, conn, source.ID, stageID, createdOn, opts)
	if err != nil {
		return nil, "", fmt.Errorf("staging artifacts: %w", err)
	}
	if numBatches == 0 {
		return nil, NoChange, nil
	}

	insertedOrUpdated, deleted, err := cat.ChangeCounts(ctx, source.ID, stageID)
	if err != nil {
		return nil, "", fmt.Errorf("computing change counts: %w", err)
	}
	if insertedOrUpdated == 0 && deleted == 0 {
		return nil, NoChange, nil
	}

	batchIDs, err := cat.BatchIDs(ctx, stageID)
	if err != nil {
		return nil, "", fmt.Errorf("listing staged batch ids: %w", err)
	}

	var totals catalog.PromotionCounts
	for _, batchID := range batchIDs {
		counts, err := cat.Promote(ctx, source.ID, stageID, batchID, createdOn)
		if err != nil {
			return nil, "", fmt.Errorf("promoting batch %s: %w", batchID, err)
		}
		totals.Reconciled += counts.Reconciled
		totals.Created += counts.Created
		totals.Generated += counts.Generated
	}

	latestGenerationID, err := cat.LatestGenerationID(ctx, source.ID)
	if err != nil {
		return nil, "", fmt.Errorf("fetching latest generation id: %w", err)
	}
	generation := &models.Generation{
		SourceID:     source.ID,
		GenerationID: latestGenerationID,
		CreatedAt:    createdOn,
	}
	return generation, Promoted, nil
}

// stageArtifacts drains conn.ListArtifacts into the stage table in
// batches of opts.batchSize(), buffering each batch with a diskslice so an
// unexpectedly large page of artifacts doesn't blow up memory before it
// can be flushed. Returns the number of batches staged.
func stageArtifacts(ctx context.Context, cat catalog.Catalog, conn connector.Connector, sourceID models.HexID, stageID string, createdOn models.Time, opts Options) (int, error) {
	batchSize := opts.batchSize()

	newBuffer := func() (*diskslice.DiskSlice[models.StageRow], error) {
		return diskslice.New[models.StageRow](diskslice.Options{
			MemoryThreshold: opts.MemoryThreshold,
			TempDir:         opts.TempDir,
			Name:            "intake-" + stageID,
		})
	}

	buf, err := newBuffer()
	if err != nil {
		return 0, fmt.Errorf("creating batch buffer: %w", err)
	}
	// buf is reassigned after every flush; this defer always closes
	// whichever buffer is current when stageArtifacts returns, including
	// on an early error return mid-listing.
	defer func() { buf.Close() }()

	numBatches := 0
	flush := func(batchID string) error {
		if buf.Len() == 0 {
			return nil
		}
		rows, err := buf.ToSlice()
		if err != nil {
			return fmt.Errorf("reading buffered batch: %w", err)
		}
		for i := range rows {
			rows[i].BatchID = batchID
		}
		if err := cat.StageBatch(ctx, rows); err != nil {
			return err
		}
		numBatches++
		return buf.Close()
	}

	batchIndex := 0
	for ref, err := range conn.ListArtifacts(ctx) {
		if err != nil {
			return 0, fmt.Errorf("listing artifacts: %w", err)
		}

		row := models.StageRow{
			StageID:     stageID,
			SourceID:    sourceID,
			ExternalID:  ref.ExternalID,
			Version:     ref.Fingerprint.Version,
			Size:        ref.Fingerprint.Size,
			ContentType: ref.Fingerprint.ContentType,
			ArtifactID:  models.NewHexID(),
			CreatedOn:   createdOn,
		}
		if err := buf.Append(row); err != nil {
			return 0, fmt.Errorf("buffering staged row: %w", err)
		}

		if buf.Len() >= batchSize {
			batchID := fmt.Sprintf("%06d", batchIndex)
			if err := flush(batchID); err != nil {
				return 0, err
			}
			batchIndex++
			buf, err = newBuffer()
			if err != nil {
				return 0, fmt.Errorf("creating batch buffer: %w", err)
			}
		}
	}

	if buf.Len() > 0 {
		batchID := fmt.Sprintf("%06d", batchIndex)
		if err := flush(batchID); err != nil {
			return 0, err
		}
	}

	return numBatches, nil
}
