package models

// Generation is a snapshot of one source at a point in time: a set of
// artifact_ids, materialized atomically during promotion pass 3 (one row
// per promoted stage row). GenerationID is the microsecond-truncated
// timestamp shared by every generation row promoted in the same intake
// cycle, making it both an identifier and a natural ordering key.
type Generation struct {
	ArtifactID   HexID `gorm:"primarykey;type:varchar(32);index:idx_generation_source_artifact,priority:2" json:"artifact_id"`
	GenerationID int64 `gorm:"primarykey" json:"generation_id"`
	SourceID     HexID `gorm:"not null;index;type:varchar(32);index:idx_generation_source_artifact,priority:1" json:"source_id"`
	CreatedAt    Time  `json:"created_at"`
}

// TableName overrides GORM's pluralized default.
func (Generation) TableName() string {
	return "generation"
}
