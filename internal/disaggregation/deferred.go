package disaggregation

import (
	"context"
	"fmt"

	"github.com/jmylchreest/cif/internal/models"
)

// runDeferred persists one PENDING deferred_disaggregation row per
// (artifact, extractor) pair, then publishes one message per row, leaving
// the actual extraction work to a Worker consuming the queue.
func runDeferred(ctx context.Context, deps Dependencies, source *models.Source, generationID int64, artifacts []models.Artifact, summary *Summary) error {
	if deps.Publisher == nil {
		return fmt.Errorf("deferred dispatch requires a Publisher")
	}

	rows := make([]models.DeferredDisaggregation, 0, len(artifacts)*len(deps.Extractors))
	for _, artifact := range artifacts {
		for _, ex := range deps.Extractors {
			rows = append(rows, models.DeferredDisaggregation{
				SourceID:      source.ID,
				GenerationID:  generationID,
				ArtifactID:    artifact.ID,
				ExtractorType: ex.Type(),
				Status:        models.DeferredPending,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	published, err := persistAndPublish(ctx, deps.Catalog, deps.Publisher, rows)
	if err != nil {
		return err
	}
	summary.DeferredPublished += published
	return nil
}
