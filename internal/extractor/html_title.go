package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jmylchreest/cif/internal/models"
	"golang.org/x/net/html"
)

// HTMLTitleType is the extractor_type name for HTMLTitleExtractor.
const HTMLTitleType = "html_title"

// HTMLTitleExtractor produces one TITLE fragment from the document's
// <title> element; none if the document has no title.
type HTMLTitleExtractor struct{}

// NewHTMLTitleExtractor builds an HTMLTitleExtractor; it takes no configuration.
func NewHTMLTitleExtractor(config []byte) (Extractor, error) {
	return &HTMLTitleExtractor{}, nil
}

// Type implements Extractor.
func (e *HTMLTitleExtractor) Type() string { return HTMLTitleType }

// CalcFragments implements Extractor.
func (e *HTMLTitleExtractor) CalcFragments(in Input) ([]models.Fragment, error) {
	doc, err := html.Parse(bytes.NewReader(in.Content))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var title string
	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(anchorText(n))
			found = true
			return
		}
		for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if !found {
		return nil, nil
	}

	return []models.Fragment{{
		FragmentID:     resolveFragmentID(in),
		ArtifactID:     in.ArtifactID,
		GenerationID:   in.GenerationID,
		ExtractorType:  e.Type(),
		Type:           models.FragmentTitle,
		TextContent:    title,
		ByteRangeStart: in.ByteRangeStart,
		ByteRangeEnd:   in.ByteRangeEnd,
	}}, nil
}

var _ Extractor = (*HTMLTitleExtractor)(nil)
