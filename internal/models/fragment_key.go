package models

// FragmentKey is one searchable (key, value) pair extracted from a
// Fragment by its source's table-driven key-extraction rule
// (internal/extractor/keys.go). Key is the name of the searchable
// attribute (e.g. "ada_code", "dr_code", or a configured json_field
// key_name); Value is the extracted value for that name. A single
// fragment commonly yields more than one row (e.g. an ADA filename rule
// emits one row per number in the filename that falls inside its range,
// all sharing Key "ada_code").
type FragmentKey struct {
	ID         int64  `gorm:"primarykey;autoIncrement" json:"id"`
	FragmentID HexID  `gorm:"not null;index;type:varchar(32)" json:"fragment_id"`
	ArtifactID HexID  `gorm:"not null;index;type:varchar(32)" json:"artifact_id"`
	Key        string `gorm:"not null;index" json:"key"`
	Value      string `gorm:"not null;index" json:"value"`
}

// TableName overrides GORM's pluralized default.
func (FragmentKey) TableName() string {
	return "fragment_key"
}
