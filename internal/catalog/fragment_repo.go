package catalog

import (
	"context"
	"fmt"

	"github.com/jmylchreest/cif/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fragmentRepo implements FragmentRepository using GORM.
type fragmentRepo struct {
	db *gorm.DB
}

func newFragmentRepo(db *gorm.DB) *fragmentRepo {
	return &fragmentRepo{db: db}
}

// CreateFragments inserts fragment rows in batches of FragmentInsertBatchSize,
// upsert-safe on the composite (artifact_id, fragment_id, seq_no) key
// rather than the surrogate id (§4.5: "insert order within a batch does
// not matter but must be upsert-safe").
func (r *fragmentRepo) CreateFragments(ctx context.Context, fragments []models.Fragment, batchSize int) error {
	if len(fragments) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = FragmentInsertBatchSize
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "artifact_id"}, {Name: "fragment_id"}, {Name: "seq_no"}},
			DoUpdates: clause.AssignmentColumns([]string{"text_content", "json_content", "byte_range_start", "byte_range_end"}),
		}).
		CreateInBatches(fragments, batchSize).Error; err != nil {
		return fmt.Errorf("creating fragments in batches: %w", err)
	}
	return nil
}

// GetFragmentByID retrieves one fragment carrying fragmentID, the lowest
// seq_no one if more than one row shares it (fragment_id alone is not
// unique: every fragment produced from one extraction task shares it,
// disambiguated by seq_no).
func (r *fragmentRepo) GetFragmentByID(ctx context.Context, id models.HexID) (*models.Fragment, error) {
	var fragment models.Fragment
	if err := r.db.WithContext(ctx).Where("fragment_id = ?", id.String()).Order("seq_no ASC").First(&fragment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting fragment by id: %w", err)
	}
	return &fragment, nil
}

// ExistsForArtifact reports whether at least one fragment row exists for
// (artifactID, fragmentID). A zero fragmentID matches any fragment for
// the artifact, used by the "every DONE row has a matching fragment"
// testable property when the message carried no explicit fragment_id.
func (r *fragmentRepo) ExistsForArtifact(ctx context.Context, artifactID, fragmentID models.HexID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Fragment{}).Where("artifact_id = ?", artifactID.String())
	if !fragmentID.IsZero() {
		query = query.Where("fragment_id = ?", fragmentID.String())
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking fragment existence: %w", err)
	}
	return count > 0, nil
}

var _ FragmentRepository = (*fragmentRepo)(nil)
