package catalog

import (
	"context"
	"fmt"

	"github.com/jmylchreest/cif/internal/models"
	"gorm.io/gorm"
)

// ChangeCounts reports the inserted/updated and deleted counts of every
// batch staged under stageID, relative to sourceID's current latest
// generation. Intake uses this to decide whether promotion is worth
// running at all (§4.1 "change detection").
func (c *gormCatalog) ChangeCounts(ctx context.Context, sourceID models.HexID, stageID string) (int64, int64, error) {
	var stageRows []models.StageRow
	if err := c.db.WithContext(ctx).Where("stage_id = ?", stageID).Find(&stageRows).Error; err != nil {
		return 0, 0, fmt.Errorf("loading staged rows: %w", err)
	}

	staged := make(map[ArtifactIdentity]bool, len(stageRows))
	for _, row := range stageRows {
		staged[ArtifactIdentity{ExternalID: row.ExternalID, Version: row.Version}] = true
	}

	latestGenerationID, err := c.generationRepo.LatestGenerationID(ctx, sourceID)
	if err != nil {
		return 0, 0, err
	}

	bound := make(map[ArtifactIdentity]bool)
	if latestGenerationID > 0 {
		artifactIDs, err := c.generationRepo.ArtifactIDsInGeneration(ctx, sourceID, latestGenerationID)
		if err != nil {
			return 0, 0, err
		}
		if len(artifactIDs) > 0 {
			idStrings := make([]string, len(artifactIDs))
			for i, id := range artifactIDs {
				idStrings[i] = id.String()
			}
			var boundArtifacts []models.Artifact
			if err := c.db.WithContext(ctx).Where("id IN ?", idStrings).Find(&boundArtifacts).Error; err != nil {
				return 0, 0, fmt.Errorf("loading generation-bound artifacts: %w", err)
			}
			for _, a := range boundArtifacts {
				bound[ArtifactIdentity{ExternalID: a.ExternalID, Version: a.Version}] = true
			}
		}
	}

	var insertedOrUpdated, deleted int64
	for ident := range staged {
		if !bound[ident] {
			insertedOrUpdated++
		}
	}
	for ident := range bound {
		if !staged[ident] {
			deleted++
		}
	}
	return insertedOrUpdated, deleted, nil
}

// Promote runs the three-pass promotion transaction for one staged batch
// (§4.1): identity reconciliation, artifact materialization, generation
// materialization.
func (c *gormCatalog) Promote(ctx context.Context, sourceID models.HexID, stageID, batchID string, createdOn models.Time) (PromotionCounts, error) {
	var counts PromotionCounts

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stage := newStageRepo(tx)
		artifacts := newArtifactRepo(tx)
		generations := newGenerationRepo(tx)

		rows, err := stage.BatchRows(ctx, stageID, batchID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		// Pass 1: identity reconciliation. Overwrite the provisional
		// artifact_id wherever (source_id, external_id, version)
		// already resolves to an existing artifact.
		identities := make([]ArtifactIdentity, len(rows))
		for i, row := range rows {
			identities[i] = ArtifactIdentity{ExternalID: row.ExternalID, Version: row.Version}
		}
		existing, err := artifacts.FindExisting(ctx, sourceID, identities)
		if err != nil {
			return err
		}
		for i, row := range rows {
			if existingID, ok := existing[identities[i]]; ok {
				if err := stage.SetArtifactID(ctx, row.ID, existingID); err != nil {
					return err
				}
				rows[i].ArtifactID = existingID
				counts.Reconciled++
			}
		}

		// Pass 2: artifact materialization. Every stage row gets an
		// insert attempt; rows carrying a reconciled (pre-existing)
		// artifact_id conflict on the primary key and are silently
		// ignored, so the table ends up with a row for every stage row
		// either way.
		newArtifacts := make([]models.Artifact, len(rows))
		for i, row := range rows {
			newArtifacts[i] = models.Artifact{
				ID:          row.ArtifactID,
				SourceID:    sourceID,
				ExternalID:  row.ExternalID,
				Version:     row.Version,
				ContentType: row.ContentType,
				Size:        row.Size,
				CreatedAt:   createdOn,
			}
		}
		if err := artifacts.CreateArtifacts(ctx, newArtifacts, PromotionBatchSize); err != nil {
			return err
		}
		counts.Created = int64(len(rows)) - counts.Reconciled

		// Pass 3: generation materialization. generation_id is the
		// integer-microsecond timestamp shared by every row promoted in
		// this intake cycle.
		generationID := createdOn.UnixMicro()
		newGenerations := make([]models.Generation, len(rows))
		for i, row := range rows {
			newGenerations[i] = models.Generation{
				ArtifactID:   row.ArtifactID,
				GenerationID: generationID,
				SourceID:     sourceID,
				CreatedAt:    createdOn,
			}
		}
		if err := generations.CreateGenerations(ctx, newGenerations, PromotionBatchSize); err != nil {
			return err
		}
		counts.Generated = int64(len(rows))

		return nil
	})
	if err != nil {
		return PromotionCounts{}, fmt.Errorf("promoting batch %s/%s: %w", stageID, batchID, err)
	}
	return counts, nil
}
