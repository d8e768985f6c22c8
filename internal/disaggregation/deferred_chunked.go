package disaggregation

import (
	"context"
	"fmt"

	"github.com/jmylchreest/cif/internal/models"
)

// runDeferredChunked persists one PENDING deferred_disaggregation row per
// (artifact, chunk, extractor) triple, with the chunk's byte range and a
// freshly minted fragment_id attached so a Worker processing the message
// can reproduce IMMEDIATE_CHUNKED's one-fragment-id-per-chunk contract.
func runDeferredChunked(ctx context.Context, deps Dependencies, source *models.Source, generationID int64, artifacts []models.Artifact, summary *Summary) error {
	if deps.Publisher == nil {
		return fmt.Errorf("deferred_chunked dispatch requires a Publisher")
	}

	linesPerChunk := deps.chunkLines(source)

	var rows []models.DeferredDisaggregation
	for _, artifact := range artifacts {
		for chunkRange, err := range deps.Connector.CalcLineChunks(ctx, artifact.ExternalID, linesPerChunk, artifact.Version) {
			if err != nil {
				return fmt.Errorf("chunking artifact %s: %w", artifact.ExternalID, err)
			}
			for _, ex := range deps.Extractors {
				rows = append(rows, models.DeferredDisaggregation{
					SourceID:       source.ID,
					GenerationID:   generationID,
					ArtifactID:     artifact.ID,
					ExtractorType:  ex.Type(),
					Status:         models.DeferredPending,
					FragmentID:     models.NewHexID(),
					ByteRangeStart: chunkRange.Start,
					ByteRangeEnd:   chunkRange.End,
				})
			}
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
