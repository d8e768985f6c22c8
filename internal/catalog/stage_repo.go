package catalog

import (
	"context"
	"fmt"

	"github.com/jmylchreest/cif/internal/models"
	"gorm.io/gorm"
)

// stageRepo implements StageRepository using GORM.
type stageRepo struct {
	db *gorm.DB
}

func newStageRepo(db *gorm.DB) *stageRepo {
	return &stageRepo{db: db}
}

// StageBatch inserts one buffered batch of staged rows.
func (r *stageRepo) StageBatch(ctx context.Context, rows []models.StageRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(rows, PromotionBatchSize).Error; err != nil {
		return fmt.Errorf("staging batch: %w", err)
	}
	return nil
}

// BatchIDs returns the distinct batch_id values staged under stageID, in
// ascending insertion order (lowest stage row ID first within each
// batch_id).
func (r *stageRepo) BatchIDs(ctx context.Context, stageID string) ([]string, error) {
	var batchIDs []string
	if err := r.db.WithContext(ctx).
		Model(&models.StageRow{}).
		Where("stage_id = ?", stageID).
		Order("MIN(id) ASC").
		Group("batch_id").
		Pluck("batch_id", &batchIDs).Error; err != nil {
		return nil, fmt.Errorf("listing batch ids: %w", err)
	}
	return batchIDs, nil
}

// BatchRows returns the staged rows for one (stageID, batchID) pair.
func (r *stageRepo) BatchRows(ctx context.Context, stageID, batchID string) ([]models.StageRow, error) {
	var rows []models.StageRow
	if err := r.db.WithContext(ctx).
		Where("stage_id = ? AND batch_id = ?", stageID, batchID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("getting batch rows: %w", err)
	}
	return rows, nil
}

// SetArtifactID rewrites the provisional artifact_id of one staged row.
func (r *stageRepo) SetArtifactID(ctx context.Context, rowID int64, artifactID models.HexID) error {
	if err := r.db.WithContext(ctx).
		Model(&models.StageRow{}).
		Where("id = ?", rowID).
		Update("artifact_id", artifactID.String()).Error; err != nil {
		return fmt.Errorf("setting stage row artifact_id: %w", err)
	}
	return nil
}

var _ StageRepository = (*stageRepo)(nil)
