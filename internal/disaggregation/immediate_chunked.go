package disaggregation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jmylchreest/cif/internal/extractor"
	"github.com/jmylchreest/cif/internal/models"
)

// runImmediateChunked partitions each artifact into line-bounded byte
// ranges and fans out (artifact, chunk, extractor) work to a bounded
// worker pool, all within the same process. Every fragment produced from
// one chunk's extraction shares one fresh fragment_id, per the chunked
// dispatch contract.
func runImmediateChunked(ctx context.Context, deps Dependencies, source *models.Source, generationID int64, artifacts []models.Artifact, summary *Summary) error {
	linesPerChunk := deps.chunkLines(source)

	var tasks []task
	var persistMu sync.Mutex
	var created int64

	for _, artifact := range artifacts {
		artifact := artifact
		for chunkRange, err := range deps.Connector.CalcLineChunks(ctx, artifact.ExternalID, linesPerChunk, artifact.Version) {
			if err != nil {
				return fmt.Errorf("chunking artifact %s: %w", artifact.ExternalID, err)
			}
			chunkRange := chunkRange
			for _, ex := range deps.Extractors {
				ex := ex
				tasks = append(tasks, func() error {
					content, err := deps.Connector.GetArtifactChunk(ctx, artifact.ExternalID, chunkRange.Start, chunkRange.End, artifact.Version)
					if err != nil {
						return fmt.Errorf("reading chunk of %s: %w", artifact.ExternalID, err)
					}
					in := extractor.Input{
						ArtifactID:     artifact.ID,
						GenerationID:   generationID,
						Content:        content,
						ByteRangeStart: chunkRange.Start,
						ByteRangeEnd:   chunkRange.End,
						FragmentID:     models.NewHexID(),
					}
					fragments, err := ex.CalcFragments(in)
					if err != nil {
						return fmt.Errorf("extracting %s from %s chunk: %w", ex.Type(), artifact.ExternalID, err)
					}
					if len(fragments) == 0 {
						return nil
					}
					keys, err := fragmentKeysFor(deps, artifact.ExternalID, ex.Type(), fragments)
					if err != nil {
						return err
					}

					persistMu.Lock()
					defer persistMu.Unlock()
					if err := persistFragments(ctx, deps.Catalog, fragments, keys); err != nil {
						return err
					}
					atomic.AddInt64(&created, int64(len(fragments)))
					return nil
				})
			}
		}
	}

	if err := runPool(deps.workers(), tasks); err != nil {
		return err
	}
	summary.FragmentsCreated += int(atomic.LoadInt64(&created))
	return nil
}
