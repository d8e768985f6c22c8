// Package disaggregation turns the new artifacts in a Generation into
// Fragments (and FragmentKeys), dispatching by the Source's configured
// mode: immediate, immediate-chunked, deferred, or deferred-chunked.
package disaggregation

import (
	"context"
	"fmt"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/connector"
	"github.com/jmylchreest/cif/internal/extractor"
	"github.com/jmylchreest/cif/internal/models"
	"github.com/jmylchreest/cif/internal/queue"
)

const (
	defaultChunkLines = 50000
	defaultWorkers    = 3
	// artifactPageSize is how many new-generation artifacts one page of
	// catalog.NewArtifactsInGeneration fetches at a time.
	artifactPageSize = 500
)

// Summary reports what one Disaggregate call produced, returned to the
// caller (cmd/cif's ingestion subcommand, or the scheduler's periodic
// trigger) for logging/metrics.
type Summary struct {
	ArtifactsProcessed int
	FragmentsCreated   int
	DeferredPublished  int
}

// Dependencies are the wired collaborators one Disaggregate call needs,
// reified once per Source by internal/factory.
type Dependencies struct {
	Catalog    catalog.Catalog
	Connector  connector.Connector
	Extractors []extractor.Extractor
	// KeyRules maps extractor_type to its table-driven key rule; an
	// extractor type absent from this map simply yields no FragmentKeys.
	KeyRules map[string]extractor.KeyRule
	// Publisher is required for DEFERRED/DEFERRED_CHUNKED sources only.
	Publisher queue.Publisher

	// ChunkLines is the lines-per-chunk for IMMEDIATE_CHUNKED/
	// DEFERRED_CHUNKED when the Source's own LinesPerChunk is zero;
	// defaultChunkLines applies if both are zero.
	ChunkLines int
	// Workers overrides defaultWorkers for IMMEDIATE_CHUNKED's pool size.
	Workers int
}

func (d Dependencies) chunkLines(source *models.Source) int {
	if source.LinesPerChunk > 0 {
		return source.LinesPerChunk
	}
	if d.ChunkLines > 0 {
		return d.ChunkLines
	}
	return defaultChunkLines
}

func (d Dependencies) workers() int {
	if d.Workers > 0 {
		return d.Workers
	}
	return defaultWorkers
}

// Disaggregate runs Disaggregation for one (source, generationID) pair,
// paginating through the generation's new artifacts and dispatching each
// page by the source's configured mode.
func Disaggregate(ctx context.Context, deps Dependencies, source *models.Source, generationID int64) (Summary, error) {
	if source == nil {
		return Summary{}, fmt.Errorf("source is nil")
	}

	var run pageHandler
	switch source.DispatchMode {
	case models.DispatchImmediate, "":
		run = runImmediate
	case models.DispatchImmediateChunked:
		run = runImmediateChunked
	case models.DispatchDeferred:
		run = runDeferred
	case models.DispatchDeferredChunked:
		run = runDeferredChunked
	default:
		return Summary{}, models.Validation("dispatch_mode", fmt.Sprintf("unknown dispatch mode: %s", source.DispatchMode))
	}

	var summary Summary
	offset := 0
	for {
		artifacts, total, err := deps.Catalog.NewArtifactsInGeneration(ctx, source.ID, generationID, offset, artifactPageSize)
		if err != nil {
			return summary, fmt.Errorf("paginating new artifacts: %w", err)
		}
		if len(artifacts) == 0 {
			break
		}
		if err := run(ctx, deps, source, generationID, artifacts, &summary); err != nil {
			return summary, err
		}
		summary.ArtifactsProcessed += len(artifacts)
		offset += len(artifacts)
		if int64(offset) >= total {
			break
		}
	}
	return summary, nil
}

// pageHandler processes one page of new artifacts under one dispatch mode,
// accumulating results into summary.
type pageHandler func(ctx context.Context, deps Dependencies, source *models.Source, generationID int64, artifacts []models.Artifact, summary *Summary) error

// fragmentKeysFor runs the extractor_type's configured KeyRule (if any)
// over every fragment just produced and appends the returned keys; the
// rule itself stamps FragmentID/ArtifactID onto each key.
func fragmentKeysFor(deps Dependencies, externalID, extractorType string, fragments []models.Fragment) ([]models.FragmentKey, error) {
	rule, ok := deps.KeyRules[extractorType]
	if !ok {
		return nil, nil
	}
	var keys []models.FragmentKey
	for _, f := range fragments {
		ks, err := rule.CalcFragmentKeys(externalID, f)
		if err != nil {
			return nil, fmt.Errorf("computing fragment keys for %s: %w", externalID, err)
		}
		keys = append(keys, ks...)
	}
	return keys, nil
}

// persistFragments inserts fragments then their keys, batched by
// catalog.FragmentInsertBatchSize/FragmentKeyInsertBatchSize as the
// repository layer already enforces.
func persistFragments(ctx context.Context, cat catalog.Catalog, fragments []models.Fragment, keys []models.FragmentKey) error {
	if err := cat.CreateFragments(ctx, fragments, 0); err != nil {
		return fmt.Errorf("persisting fragments: %w", err)
	}
	if err := cat.CreateFragmentKeys(ctx, keys, 0); err != nil {
		return fmt.Errorf("persisting fragment keys: %w", err)
	}
	return nil
}
