package extractor

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/cif/internal/models"
)

// CSVRowType is the extractor_type name for CSVRowExtractor.
const CSVRowType = "csv_row"

// csvHeaderSniffBytes is how much of the file's head is parsed as a CSV
// header when a byte-ranged chunk doesn't include it itself.
const csvHeaderSniffBytes = 4096

// CSVRowExtractor produces one ROW fragment per data row: text_content is
// the space-joined cell values, json_content is a column→value map. Field
// names come from the first 4 KiB of the file; a byte-ranged chunk uses
// in.Header (pre-parsed by the disaggregation dispatcher) instead of
// re-reading the head.
type CSVRowExtractor struct{}

// NewCSVRowExtractor builds a CSVRowExtractor; it takes no configuration.
func NewCSVRowExtractor(config []byte) (Extractor, error) {
	return &CSVRowExtractor{}, nil
}

// Type implements Extractor.
func (e *CSVRowExtractor) Type() string { return CSVRowType }

// CalcFragments implements Extractor.
func (e *CSVRowExtractor) CalcFragments(in Input) ([]models.Fragment, error) {
	header := in.Header
	reader := csv.NewReader(bytes.NewReader(in.Content))
	reader.FieldsPerRecord = -1

	if header == nil {
		headLen := len(in.Content)
		if headLen > csvHeaderSniffBytes {
			headLen = csvHeaderSniffBytes
		}
		h, err := csv.NewReader(bytes.NewReader(in.Content[:headLen])).Read()
		if err != nil {
			return nil, fmt.Errorf("reading csv header: %w", err)
		}
		header = h

		// The field names came from this artifact's own head, so skip
		// that same row in the full-body reader before reading data rows.
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("skipping csv header row: %w", err)
		}
	}

	fragmentID := resolveFragmentID(in)
	seqNo := 0

	var fragments []models.Fragment
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading csv row: %w", err)
		}

		columns := make(map[string]string, len(header))
		for i, value := range record {
			if i < len(header) {
				columns[header[i]] = value
			} else {
				columns[fmt.Sprintf("column_%d", i)] = value
			}
		}
		jsonContent, err := json.Marshal(columns)
		if err != nil {
			return nil, fmt.Errorf("marshaling csv row: %w", err)
		}

		fragments = append(fragments, models.Fragment{
			FragmentID:     fragmentID,
			SeqNo:          seqNo,
			ArtifactID:     in.ArtifactID,
			GenerationID:   in.GenerationID,
			ExtractorType:  e.Type(),
			Type:           models.FragmentRow,
			TextContent:    strings.Join(record, " "),
			JSONContent:    jsonContent,
			ByteRangeStart: in.ByteRangeStart,
			ByteRangeEnd:   in.ByteRangeEnd,
		})
		seqNo++
	}
	return fragments, nil
}

var _ Extractor = (*CSVRowExtractor)(nil)
