package models

import "encoding/json"

// FragmentType identifies the shape of content a Fragment carries.
type FragmentType string

const (
	FragmentDocument FragmentType = "DOCUMENT"
	FragmentLink     FragmentType = "LINK"
	FragmentTitle    FragmentType = "TITLE"
	FragmentRow      FragmentType = "ROW"
)

// Fragment is one unit of extracted content produced by running an
// Extractor against one artifact generation. fragment_id is shared by
// every fragment produced from one extraction task (e.g. every row of
// one chunked CSV task, or every link on one HTML page) and is therefore
// not unique by itself: (artifact_id, fragment_id, seq_no) is the unique
// key, with seq_no disambiguating fragments within the same task.
type Fragment struct {
	ID            int64        `gorm:"primarykey;autoIncrement" json:"id"`
	FragmentID    HexID        `gorm:"not null;uniqueIndex:idx_fragment_unique,priority:2;type:varchar(32)" json:"fragment_id"`
	ArtifactID    HexID        `gorm:"not null;uniqueIndex:idx_fragment_unique,priority:1;type:varchar(32)" json:"artifact_id"`
	SeqNo         int          `gorm:"not null;default:0;uniqueIndex:idx_fragment_unique,priority:3" json:"seq_no"`
	GenerationID  int64        `gorm:"not null;index" json:"generation_id"`
	ExtractorType string       `gorm:"not null;index" json:"extractor_type"`
	Type          FragmentType `gorm:"not null;index" json:"type"`
	// TextContent is the tokenizer/stopword-filtered searchable text. The
	// index here is a plain btree; engines with native full-text/n-gram
	// support (Postgres tsvector, SQLite FTS5) should layer that on top
	// out-of-band rather than through AutoMigrate, which has no portable
	// way to express it across the three supported drivers.
	TextContent string `gorm:"type:text;index:idx_fragment_text_content" json:"text_content"`
	// JSONContent is the structured payload (e.g. a CSV row as a JSON
	// object, or link href + anchor text), stored verbatim.
	JSONContent json.RawMessage `gorm:"type:text" json:"json_content"`
	// ByteRangeStart/End are set for fragments produced from a chunked
	// dispatch mode; zero-value (0,0) for whole-artifact fragments.
	ByteRangeStart int64 `json:"byte_range_start"`
	ByteRangeEnd   int64 `json:"byte_range_end"`
	CreatedAt      Time  `json:"created_at"`
}

// TableName overrides GORM's pluralized default.
func (Fragment) TableName() string {
	return "fragment"
}
