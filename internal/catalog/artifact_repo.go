package catalog

import (
	"context"
	"fmt"

	"github.com/jmylchreest/cif/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// artifactRepo implements ArtifactRepository using GORM.
type artifactRepo struct {
	db *gorm.DB
}

func newArtifactRepo(db *gorm.DB) *artifactRepo {
	return &artifactRepo{db: db}
}

// FindExisting looks up existing artifacts under sourceID matching any of
// identities, keyed by (external_id, version). A single query narrows by
// external_id (portable across drivers); version matching happens in Go
// since a cross-driver tuple-IN isn't worth the portability risk for a
// batch this size.
func (r *artifactRepo) FindExisting(ctx context.Context, sourceID models.HexID, identities []ArtifactIdentity) (map[ArtifactIdentity]models.HexID, error) {
	result := make(map[ArtifactIdentity]models.HexID, len(identities))
	if len(identities) == 0 {
		return result, nil
	}

	externalIDs := make([]string, 0, len(identities))
	seen := make(map[string]bool, len(identities))
	for _, ident := range identities {
		if !seen[ident.ExternalID] {
			seen[ident.ExternalID] = true
			externalIDs = append(externalIDs, ident.ExternalID)
		}
	}

	var existing []models.Artifact
	if err := r.db.WithContext(ctx).
		Where("source_id = ? AND external_id IN ?", sourceID.String(), externalIDs).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("finding existing artifacts: %w", err)
	}

	byIdentity := make(map[ArtifactIdentity]models.HexID, len(existing))
	for _, a := range existing {
		byIdentity[ArtifactIdentity{ExternalID: a.ExternalID, Version: a.Version}] = a.ID
	}

	for _, ident := range identities {
		if id, ok := byIdentity[ident]; ok {
			result[ident] = id
		}
	}
	return result, nil
}

// CreateArtifacts inserts new artifact rows, ignoring duplicates on the
// primary key (expected when two stage rows reconcile to the same new
// artifact_id within the same promotion pass).
func (r *artifactRepo) CreateArtifacts(ctx context.Context, artifacts []models.Artifact, batchSize int) error {
	if len(artifacts) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = PromotionBatchSize
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(artifacts, batchSize).Error; err != nil {
		return fmt.Errorf("creating artifacts in batches: %w", err)
	}
	return nil
}

// GetArtifactByID retrieves an artifact by ID.
func (r *artifactRepo) GetArtifactByID(ctx context.Context, id models.HexID) (*models.Artifact, error) {
	var artifact models.Artifact
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&artifact).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting artifact by id: %w", err)
	}
	return &artifact, nil
}

var _ ArtifactRepository = (*artifactRepo)(nil)
