package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmylchreest/cif/internal/models"
	"golang.org/x/net/html"
)

// HTMLDocumentType is the extractor_type name for HTMLDocumentExtractor.
const HTMLDocumentType = "html_document"

// HTMLDocumentExtractor produces one DOCUMENT fragment per artifact: every
// text node's content, collapsed whitespace, markup discarded.
type HTMLDocumentExtractor struct {
	Filter TextFilter
}

// NewHTMLDocumentExtractor builds an HTMLDocumentExtractor from raw JSON
// config (an optional list of extra stop words).
func NewHTMLDocumentExtractor(config []byte) (Extractor, error) {
	filter, err := parseTextFilterConfig(config)
	if err != nil {
		return nil, err
	}
	return &HTMLDocumentExtractor{Filter: filter}, nil
}

func parseTextFilterConfig(config []byte) (TextFilter, error) {
	var cfg struct {
		ExtraStopWords []string `json:"extra_stop_words"`
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &cfg); err != nil {
			return TextFilter{}, fmt.Errorf("parsing text filter config: %w", err)
		}
	}
	return TextFilter{ExtraStopWords: cfg.ExtraStopWords}, nil
}

// Type implements Extractor.
func (e *HTMLDocumentExtractor) Type() string { return HTMLDocumentType }

// CalcFragments implements Extractor.
func (e *HTMLDocumentExtractor) CalcFragments(in Input) ([]models.Fragment, error) {
	text, err := extractAllText(in.Content)
	if err != nil {
		return nil, err
	}

	return []models.Fragment{{
		FragmentID:     resolveFragmentID(in),
		ArtifactID:     in.ArtifactID,
		GenerationID:   in.GenerationID,
		ExtractorType:  e.Type(),
		Type:           models.FragmentDocument,
		TextContent:    e.Filter.Apply(text),
		ByteRangeStart: in.ByteRangeStart,
		ByteRangeEnd:   in.ByteRangeEnd,
	}}, nil
}

// extractAllText walks the parsed document collecting every text node,
// joined by single spaces so markup boundaries don't glue words together.
func extractAllText(content []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(parts, " "), nil
}

var _ Extractor = (*HTMLDocumentExtractor)(nil)
