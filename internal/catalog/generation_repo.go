package catalog

import (
	"context"
	"fmt"

	"github.com/jmylchreest/cif/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// generationRepo implements GenerationRepository using GORM.
type generationRepo struct {
	db *gorm.DB
}

func newGenerationRepo(db *gorm.DB) *generationRepo {
	return &generationRepo{db: db}
}

// CreateGenerations inserts new generation rows. Duplicates (same
// artifact_id + generation_id primary key, re-promoting the same batch)
// are ignored rather than erroring.
func (r *generationRepo) CreateGenerations(ctx context.Context, generations []models.Generation, batchSize int) error {
	if len(generations) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = PromotionBatchSize
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(generations, batchSize).Error; err != nil {
		return fmt.Errorf("creating generations in batches: %w", err)
	}
	return nil
}

// LatestGenerationID returns the highest generation_id recorded for
// sourceID, or zero if the source has no generations yet.
func (r *generationRepo) LatestGenerationID(ctx context.Context, sourceID models.HexID) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).
		Model(&models.Generation{}).
		Where("source_id = ?", sourceID.String()).
		Select("COALESCE(MAX(generation_id), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("getting latest generation id: %w", err)
	}
	return max, nil
}

// ArtifactIDsInGeneration returns every artifact_id belonging to one
// generation.
func (r *generationRepo) ArtifactIDsInGeneration(ctx context.Context, sourceID models.HexID, generationID int64) ([]models.HexID, error) {
	var raw []string
	if err := r.db.WithContext(ctx).
		Model(&models.Generation{}).
		Where("source_id = ? AND generation_id = ?", sourceID.String(), generationID).
		Pluck("artifact_id", &raw).Error; err != nil {
		return nil, fmt.Errorf("listing generation artifact ids: %w", err)
	}
	ids := make([]models.HexID, 0, len(raw))
	for _, s := range raw {
		id, err := models.ParseHexID(s)
		if err != nil {
			return nil, fmt.Errorf("parsing generation artifact id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// NewArtifactsInGeneration returns the artifacts newly created in
// generationID: those whose artifact.created_at equals the generation's
// created_at, the defining test for "new in generation G" (§4.1).
func (r *generationRepo) NewArtifactsInGeneration(ctx context.Context, sourceID models.HexID, generationID int64, offset, limit int) ([]models.Artifact, int64, error) {
	var gen models.Generation
	if err := r.db.WithContext(ctx).
		Where("source_id = ? AND generation_id = ?", sourceID.String(), generationID).
		First(&gen).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("getting generation: %w", err)
	}

	var artifactIDs []string
	if err := r.db.WithContext(ctx).
		Model(&models.Generation{}).
		Where("source_id = ? AND generation_id = ?", sourceID.String(), generationID).
		Pluck("artifact_id", &artifactIDs).Error; err != nil {
		return nil, 0, fmt.Errorf("listing generation artifact ids: %w", err)
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Artifact{}).
		Where("id IN ? AND created_at = ?", artifactIDs, gen.CreatedAt).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting new artifacts: %w", err)
	}

	var artifacts []models.Artifact
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND created_at = ?", artifactIDs, gen.CreatedAt).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&artifacts).Error; err != nil {
		return nil, 0, fmt.Errorf("listing new artifacts: %w", err)
	}

	return artifacts, total, nil
}

var _ GenerationRepository = (*generationRepo)(nil)
