package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// ConnectorType identifies which Connector variant a Source uses.
type ConnectorType string

const (
	ConnectorFilesystem       ConnectorType = "filesystem"
	ConnectorBlobStore        ConnectorType = "blob_store"
	ConnectorBlobStoreDynamic ConnectorType = "blob_store_dynamic"
	ConnectorTabular          ConnectorType = "tabular"
)

// DispatchMode identifies which of the four Disaggregation dispatch modes
// a Source uses.
type DispatchMode string

const (
	DispatchImmediate        DispatchMode = "immediate"
	DispatchImmediateChunked DispatchMode = "immediate_chunked"
	DispatchDeferred         DispatchMode = "deferred"
	DispatchDeferredChunked  DispatchMode = "deferred_chunked"
)

// Source is a configured origin of artifacts: a connector configuration, a
// set of extractor types to run against new artifacts, and per-source
// key-extraction rules keyed by extractor type.
type Source struct {
	ID            HexID         `gorm:"primarykey;type:varchar(32)" json:"id"`
	Name          string        `gorm:"not null" json:"name"`
	ConnectorType ConnectorType `gorm:"not null;index" json:"connector_type"`
	// ConnectorConfig is the connector-variant-specific configuration
	// (root path, bucket/project, prefix template, SQL + key columns),
	// stored as JSON and unmarshaled by the connector factory per type.
	ConnectorConfig json.RawMessage `gorm:"type:text" json:"connector_config"`
	// ExtractorTypes is the ordered list of extractor type names to run
	// against every new artifact from this source.
	ExtractorTypes StringSlice `gorm:"type:text" json:"extractor_types"`
	// KeyRules maps extractor type name to its table-driven key-extraction
	// rule (see internal/extractor/keys.go), stored as JSON.
	KeyRules json.RawMessage `gorm:"type:text" json:"key_rules"`
	// DispatchMode selects which of the four Disaggregation modes
	// Disaggregate uses for this source's new artifacts.
	DispatchMode DispatchMode `gorm:"not null;default:immediate" json:"dispatch_mode"`
	// LinesPerChunk overrides the default chunk size for chunked dispatch
	// modes; zero means use the package default (50,000).
	LinesPerChunk int `json:"lines_per_chunk"`
	// CronSchedule, if set, is a 6-field (with seconds) robfig/cron
	// expression internal/scheduler uses to trigger periodic re-ingestion
	// of this source; empty disables scheduling (the source can still be
	// ingested on demand via `cif ingestion`).
	CronSchedule string         `json:"cron_schedule"`
	CreatedAt    Time           `json:"created_at"`
	UpdatedAt    Time           `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// BeforeCreate generates a HexID if not already set.
func (s *Source) BeforeCreate(tx *gorm.DB) error {
	if s.ID.IsZero() {
		s.ID = NewHexID()
	}
	return nil
}

// TableName overrides GORM's pluralized default to match the singular
// table names the catalog's named queries assume.
func (Source) TableName() string {
	return "source"
}

// Validate checks required fields on a Source.
func (s *Source) Validate() error {
	if s.Name == "" {
		return Validation("name", "is required")
	}
	if s.ConnectorType == "" {
		return ErrConnectorTypeRequired
	}
	switch s.DispatchMode {
	case DispatchImmediate, DispatchImmediateChunked, DispatchDeferred, DispatchDeferredChunked, "":
	default:
		return Validation("dispatch_mode", "must be one of immediate, immediate_chunked, deferred, deferred_chunked")
	}
	return nil
}

// StringSlice is a comma-free JSON-encoded []string column type.
type StringSlice []string

// Value implements driver.Valuer.
func (s StringSlice) Value() (interface{}, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return Validation("extractor_types", "unsupported scan type")
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}

// GormDataType returns the GORM column type for StringSlice.
func (StringSlice) GormDataType() string {
	return "text"
}
