package catalog

import (
	"context"
	"fmt"

	"github.com/jmylchreest/cif/internal/models"
	"gorm.io/gorm"
)

// sourceRepo implements SourceRepository using GORM.
type sourceRepo struct {
	db *gorm.DB
}

func newSourceRepo(db *gorm.DB) *sourceRepo {
	return &sourceRepo{db: db}
}

// CreateSource creates a new source.
func (r *sourceRepo) CreateSource(ctx context.Context, source *models.Source) error {
	if err := r.db.WithContext(ctx).Create(source).Error; err != nil {
		return fmt.Errorf("creating source: %w", err)
	}
	return nil
}

// GetSource retrieves a source by ID.
func (r *sourceRepo) GetSource(ctx context.Context, id models.HexID) (*models.Source, error) {
	var source models.Source
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&source).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting source by id: %w", err)
	}
	return &source, nil
}

// ListSources retrieves all sources.
func (r *sourceRepo) ListSources(ctx context.Context) ([]*models.Source, error) {
	var sources []*models.Source
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	return sources, nil
}

// UpdateSource updates an existing source.
func (r *sourceRepo) UpdateSource(ctx context.Context, source *models.Source) error {
	if err := r.db.WithContext(ctx).Save(source).Error; err != nil {
		return fmt.Errorf("updating source: %w", err)
	}
	return nil
}

var _ SourceRepository = (*sourceRepo)(nil)
