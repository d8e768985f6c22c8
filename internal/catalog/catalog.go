package catalog

import "gorm.io/gorm"

// gormCatalog composes the per-table repositories into the full Catalog
// contract, grounded on internal/repository's one-struct-per-table split
// (DESIGN.md: "Repository-per-table files").
type gormCatalog struct {
	db *gorm.DB
	*sourceRepo
	*stageRepo
	*artifactRepo
	*generationRepo
	*fragmentRepo
	*fragmentKeyRepo
	*deferredRepo
}

// New builds a Catalog backed by db.
func New(db *gorm.DB) Catalog {
	return &gormCatalog{
		db:              db,
		sourceRepo:      newSourceRepo(db),
		stageRepo:       newStageRepo(db),
		artifactRepo:    newArtifactRepo(db),
		generationRepo:  newGenerationRepo(db),
		fragmentRepo:    newFragmentRepo(db),
		fragmentKeyRepo: newFragmentKeyRepo(db),
		deferredRepo:    newDeferredRepo(db),
	}
}

var _ Catalog = (*gormCatalog)(nil)
