package disaggregation

import (
	"context"
	"fmt"
	"io"

	"github.com/jmylchreest/cif/internal/extractor"
	"github.com/jmylchreest/cif/internal/models"
)

// runImmediate reads each artifact's full content once and runs every
// configured extractor against it in the same process, persisting
// fragments and keys before moving to the next artifact.
func runImmediate(ctx context.Context, deps Dependencies, source *models.Source, generationID int64, artifacts []models.Artifact, summary *Summary) error {
	for _, artifact := range artifacts {
		rc, _, err := deps.Connector.GetArtifact(ctx, artifact.ExternalID, artifact.Version)
		if err != nil {
			return fmt.Errorf("reading artifact %s: %w", artifact.ExternalID, err)
		}
		content, err := io.ReadAll(rc)
		closeErr := rc.Close()
		if err != nil {
			return fmt.Errorf("reading artifact %s: %w", artifact.ExternalID, err)
		}
		if closeErr != nil {
			return fmt.Errorf("closing artifact %s: %w", artifact.ExternalID, closeErr)
		}

		for _, ex := range deps.Extractors {
			in := extractor.Input{
				ArtifactID:   artifact.ID,
				GenerationID: generationID,
				Content:      content,
			}
			fragments, err := ex.CalcFragments(in)
			if err != nil {
				return fmt.Errorf("extracting %s from %s: %w", ex.Type(), artifact.ExternalID, err)
			}
			if len(fragments) == 0 {
				continue
			}
			keys, err := fragmentKeysFor(deps, artifact.ExternalID, ex.Type(), fragments)
			if err != nil {
				return err
			}
			if err := persistFragments(ctx, deps.Catalog, fragments, keys); err != nil {
				return err
			}
			summary.FragmentsCreated += len(fragments)
		}
	}
	return nil
}
