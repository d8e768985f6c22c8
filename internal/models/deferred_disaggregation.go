package models

// DeferredStatus is the three-state machine a deferred-disaggregation row
// moves through: persisted PENDING before publish, then DONE or FAILED
// once a worker (or retry) resolves the message.
type DeferredStatus string

const (
	DeferredPending DeferredStatus = "PENDING"
	DeferredDone    DeferredStatus = "DONE"
	DeferredFailed  DeferredStatus = "FAILED"
)

// DeferredDisaggregation is the durable record persisted before a
// corresponding message is published to the queue, so that a publish
// failure never strands an artifact×extractor pair with no record at all.
// The composite key (source_id, generation_id, artifact_id, extractor_type,
// fragment_id, byte_range_start, byte_range_end) is the schema's upsert key
// per spec.md §4.6: "each attempt upserts a row keyed by" that tuple.
type DeferredDisaggregation struct {
	ID              int64          `gorm:"primarykey;autoIncrement" json:"id"`
	SourceID        HexID          `gorm:"not null;index;type:varchar(32);uniqueIndex:idx_deferred_key,priority:1" json:"source_id"`
	GenerationID    int64          `gorm:"not null;index;uniqueIndex:idx_deferred_key,priority:2" json:"generation_id"`
	ArtifactID      HexID          `gorm:"not null;index;type:varchar(32);uniqueIndex:idx_deferred_key,priority:3" json:"artifact_id"`
	ExtractorType   string         `gorm:"not null;uniqueIndex:idx_deferred_key,priority:4" json:"extractor_type"`
	Status          DeferredStatus `gorm:"not null;index;default:PENDING" json:"status"`
	DeliveryAttempt int            `gorm:"not null;default:0" json:"delivery_attempt"`
	// ByteRangeStart/End and FragmentID are set only for chunked dispatch.
	ByteRangeStart int64  `gorm:"uniqueIndex:idx_deferred_key,priority:6" json:"byte_range_start"`
	ByteRangeEnd   int64  `gorm:"uniqueIndex:idx_deferred_key,priority:7" json:"byte_range_end"`
	FragmentID     HexID  `gorm:"type:varchar(32);uniqueIndex:idx_deferred_key,priority:5" json:"fragment_id"`
	LastError      string `gorm:"type:text" json:"last_error"`
	CreatedAt      Time   `json:"created_at"`
	UpdatedAt      Time   `json:"updated_at"`
}

// TableName overrides GORM's pluralized default.
func (DeferredDisaggregation) TableName() string {
	return "deferred_disaggregation"
}

// Message is the wire payload published to the queue for one deferred
// disaggregation row. Its json round-trip is covered by
// TestMessage_JSONRoundTrip in base_test.go.
type Message struct {
	ID            int64  `json:"id"`
	SourceID      string `json:"source_id"`
	GenerationID  int64  `json:"generation_id"`
	ArtifactID    string `json:"artifact_id"`
	ExtractorType string `json:"extractor_type"`
	// ByteRangeStart/End are present only for DEFERRED_CHUNKED messages.
	ByteRangeStart int64 `json:"byte_range_start,omitempty"`
	ByteRangeEnd   int64 `json:"byte_range_end,omitempty"`
	Chunked        bool  `json:"chunked"`
}

// ToMessage builds the wire message for this row.
func (d *DeferredDisaggregation) ToMessage() Message {
	return Message{
		ID:             d.ID,
		SourceID:       d.SourceID.String(),
		GenerationID:   d.GenerationID,
		ArtifactID:     d.ArtifactID.String(),
		ExtractorType:  d.ExtractorType,
		ByteRangeStart: d.ByteRangeStart,
		ByteRangeEnd:   d.ByteRangeEnd,
		Chunked:        d.ByteRangeEnd > 0 || d.ByteRangeStart > 0,
	}
}
