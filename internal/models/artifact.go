package models

// Artifact is the content-addressed identity of one (source_id,
// external_id, version) triple. It is materialized once per identity
// during promotion pass 2; an unchanged (external_id, version) pair
// across intake cycles reuses the same ArtifactID, while any change to
// version produces a new Artifact row. Artifacts are never mutated after
// creation.
type Artifact struct {
	ID          HexID  `gorm:"primarykey;type:varchar(32)" json:"id"`
	SourceID    HexID  `gorm:"not null;index:idx_artifact_source_ext,priority:1;type:varchar(32)" json:"source_id"`
	ExternalID  string `gorm:"not null;index:idx_artifact_source_ext,priority:2" json:"external_id"`
	Version     string `gorm:"not null;index:idx_artifact_source_ext,priority:3" json:"version"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	CreatedAt   Time   `json:"created_at"`
}

// TableName overrides GORM's pluralized default.
func (Artifact) TableName() string {
	return "artifact"
}

// Fingerprint projects the artifact's identity-bearing fields back into a
// Fingerprint value, the same shape a Connector reports for comparison.
func (a Artifact) Fingerprint() Fingerprint {
	return Fingerprint{
		ExternalID:  a.ExternalID,
		Version:     a.Version,
		Size:        a.Size,
		ContentType: a.ContentType,
	}
}
