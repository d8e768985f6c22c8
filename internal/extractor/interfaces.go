// Package extractor turns artifact content into searchable Fragments and
// FragmentKeys.
package extractor

import (
	"github.com/jmylchreest/cif/internal/models"
)

// Input is the slice of artifact content an Extractor runs against,
// together with the identity it must stamp onto every Fragment it
// produces. Content may be a byte-range chunk rather than the whole
// artifact when a chunked dispatch mode is in effect.
type Input struct {
	ArtifactID     models.HexID
	GenerationID   int64
	Content        []byte
	ByteRangeStart int64
	ByteRangeEnd   int64
	// FragmentID is pre-assigned by the disaggregation dispatcher so every
	// fragment produced from the same chunk shares one identity.
	FragmentID models.HexID
	// Header is populated only for CSVRowExtractor when a byte range is
	// given: the column names parsed from the first 4 KiB, carried
	// forward so body-only chunks don't need to re-read the head.
	Header []string
}

// Extractor produces Fragments (and, per-source, FragmentKeys) from one
// Input. Type identifies the extractor variant for factory lookup and is
// stamped onto every Fragment as extractor_type.
type Extractor interface {
	Type() string
	CalcFragments(in Input) ([]models.Fragment, error)
}

// KeyRule computes FragmentKeys for one Fragment, given the artifact's
// external_id (most filename-based rules match against it).
type KeyRule interface {
	CalcFragmentKeys(externalID string, fragment models.Fragment) ([]models.FragmentKey, error)
}

// resolveFragmentID returns the fragment_id every Fragment produced from
// in must carry: the dispatcher's pre-assigned id, or a freshly minted
// one if the extractor is running outside a chunked dispatch (immediate,
// whole-artifact mode never sets in.FragmentID).
func resolveFragmentID(in Input) models.HexID {
	if in.FragmentID.IsZero() {
		return models.NewHexID()
	}
	return in.FragmentID
}

// Constructor builds an Extractor from its raw JSON configuration (the
// HTML document extractor's extra stop words; the other built-in variants
// take no configuration).
type Constructor func(config []byte) (Extractor, error)
