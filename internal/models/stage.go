package models

// StageRow is one staged tuple from a single intake batch: the connector's
// view of one artifact version, not yet reconciled against the catalog's
// identity table. ArtifactID is provisional until promotion pass 1
// (identity reconciliation) completes — nothing outside internal/catalog
// may read it before then.
type StageRow struct {
	ID      int64  `gorm:"primarykey;autoIncrement" json:"id"`
	StageID string `gorm:"not null;index" json:"stage_id"`
	// BatchID identifies one buffered batch within a stage_id's intake
	// cycle; promotion runs once per batch_id in ascending order.
	BatchID  string `gorm:"not null;index" json:"batch_id"`
	SourceID HexID  `gorm:"not null;index;type:varchar(32)" json:"source_id"`
	ExternalID  string `gorm:"not null" json:"external_id"`
	Version     string `gorm:"not null" json:"version"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	// ArtifactID is a provisional id minted at staging; promotion pass 1
	// replaces it when (source_id, external_id, version) already resolves
	// to an existing artifact.
	ArtifactID HexID `gorm:"type:varchar(32)" json:"artifact_id"`
	CreatedOn  Time  `gorm:"not null;index" json:"created_on"`
}

// TableName overrides GORM's pluralized default.
func (StageRow) TableName() string {
	return "stage"
}

// Fingerprint projects the staged row back into a Fingerprint value.
func (s StageRow) Fingerprint() Fingerprint {
	return Fingerprint{
		ExternalID:  s.ExternalID,
		Version:     s.Version,
		Size:        s.Size,
		ContentType: s.ContentType,
	}
}
