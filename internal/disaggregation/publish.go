package disaggregation

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/models"
	"github.com/jmylchreest/cif/internal/queue"
)

// persistAndPublish upserts rows in batches of
// catalog.DeferredPersistBatchSize, then publishes one message per row in
// the batch, awaiting every publish future via errgroup before moving to
// the next batch. A row is upserted as PENDING before its message is ever
// published, so a publish failure never leaves an artifact×extractor pair
// with no durable record at all.
func persistAndPublish(ctx context.Context, cat catalog.Catalog, pub queue.Publisher, rows []models.DeferredDisaggregation) (published int, err error) {
	for start := 0; start < len(rows); start += catalog.DeferredPersistBatchSize {
		end := start + catalog.DeferredPersistBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		if err := cat.UpsertBatch(ctx, batch); err != nil {
			return published, fmt.Errorf("persisting deferred batch: %w", err)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, r := range batch {
			r := r
			g.Go(func() error {
				payload, err := json.Marshal(r.ToMessage())
				if err != nil {
					return fmt.Errorf("encoding deferred message: %w", err)
				}
				return pub.Publish(gctx, payload)
			})
		}
		if err := g.Wait(); err != nil {
			return published, fmt.Errorf("publishing deferred batch: %w", err)
		}
		published += len(batch)
	}
	return published, nil
}
