package catalog

import (
	"context"
	"fmt"

	"github.com/jmylchreest/cif/internal/models"
	"gorm.io/gorm"
)

// fragmentKeyRepo implements FragmentKeyRepository using GORM.
type fragmentKeyRepo struct {
	db *gorm.DB
}

func newFragmentKeyRepo(db *gorm.DB) *fragmentKeyRepo {
	return &fragmentKeyRepo{db: db}
}

// CreateFragmentKeys inserts fragment_key rows in batches of
// FragmentKeyInsertBatchSize.
func (r *fragmentKeyRepo) CreateFragmentKeys(ctx context.Context, keys []models.FragmentKey, batchSize int) error {
	if len(keys) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = FragmentKeyInsertBatchSize
	}
	if err := r.db.WithContext(ctx).CreateInBatches(keys, batchSize).Error; err != nil {
		return fmt.Errorf("creating fragment keys in batches: %w", err)
	}
	return nil
}

var _ FragmentKeyRepository = (*fragmentKeyRepo)(nil)
