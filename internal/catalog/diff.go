package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmylchreest/cif/internal/models"
)

// externalIDArtifactMap returns, for one generation, the external_id ->
// artifact_id mapping of every artifact bound to it. A generation row
// only carries artifact_id, so this joins back to artifact for
// external_id — the two-left-join shape a portable FULL OUTER JOIN
// simulation needs, since SQLite has no native FULL OUTER JOIN.
func (c *gormCatalog) externalIDArtifactMap(ctx context.Context, sourceID models.HexID, generationID int64) (map[string]models.HexID, error) {
	m := make(map[string]models.HexID)
	if generationID == 0 {
		return m, nil
	}

	artifactIDs, err := c.generationRepo.ArtifactIDsInGeneration(ctx, sourceID, generationID)
	if err != nil {
		return nil, err
	}
	if len(artifactIDs) == 0 {
		return m, nil
	}

	idStrings := make([]string, len(artifactIDs))
	for i, id := range artifactIDs {
		idStrings[i] = id.String()
	}

	var artifacts []models.Artifact
	if err := c.db.WithContext(ctx).Where("id IN ?", idStrings).Find(&artifacts).Error; err != nil {
		return nil, fmt.Errorf("loading generation artifacts: %w", err)
	}
	for _, a := range artifacts {
		m[a.ExternalID] = a.ID
	}
	return m, nil
}

// Diff classifies every external_id present in generation genA or genB of
// sourceID, per §4.1: INSERTED (absent in A), DELETED (absent in B),
// UPDATED (different artifact_id), or NONE (same artifact_id).
func (c *gormCatalog) Diff(ctx context.Context, sourceID models.HexID, genA, genB int64) ([]DiffEntry, error) {
	mapA, err := c.externalIDArtifactMap(ctx, sourceID, genA)
	if err != nil {
		return nil, err
	}
	mapB, err := c.externalIDArtifactMap(ctx, sourceID, genB)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(mapB))
	entries := make([]DiffEntry, 0, len(mapA)+len(mapB))

	for externalID, idB := range mapB {
		seen[externalID] = true
		idA, inA := mapA[externalID]
		switch {
		case !inA:
			entries = append(entries, DiffEntry{ExternalID: externalID, Status: DiffInserted, ArtifactID: idB})
		case idA == idB:
			entries = append(entries, DiffEntry{ExternalID: externalID, Status: DiffNone, ArtifactID: idB})
		default:
			entries = append(entries, DiffEntry{ExternalID: externalID, Status: DiffUpdated, ArtifactID: idB})
		}
	}
	for externalID, idA := range mapA {
		if seen[externalID] {
			continue
		}
		entries = append(entries, DiffEntry{ExternalID: externalID, Status: DiffDeleted, ArtifactID: idA})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ExternalID < entries[j].ExternalID })
	return entries, nil
}
