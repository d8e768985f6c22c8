package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jmylchreest/cif/internal/models"
	"golang.org/x/net/html"
)

// HTMLLinkType is the extractor_type name for HTMLLinkExtractor.
const HTMLLinkType = "html_link"

// HTMLLinkExtractor produces one LINK fragment per <a href> element:
// text_content is "<href> <anchor-text>".
type HTMLLinkExtractor struct{}

// NewHTMLLinkExtractor builds an HTMLLinkExtractor; it takes no configuration.
func NewHTMLLinkExtractor(config []byte) (Extractor, error) {
	return &HTMLLinkExtractor{}, nil
}

// Type implements Extractor.
func (e *HTMLLinkExtractor) Type() string { return HTMLLinkType }

// CalcFragments implements Extractor.
func (e *HTMLLinkExtractor) CalcFragments(in Input) ([]models.Fragment, error) {
	doc, err := html.Parse(bytes.NewReader(in.Content))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	fragmentID := resolveFragmentID(in)
	seqNo := 0

	var fragments []models.Fragment
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attrValue(n, "href")
			if href != "" {
				anchor := strings.TrimSpace(anchorText(n))
				fragments = append(fragments, models.Fragment{
					FragmentID:     fragmentID,
					SeqNo:          seqNo,
					ArtifactID:     in.ArtifactID,
					GenerationID:   in.GenerationID,
					ExtractorType:  e.Type(),
					Type:           models.FragmentLink,
					TextContent:    strings.TrimSpace(href + " " + anchor),
					ByteRangeStart: in.ByteRangeStart,
					ByteRangeEnd:   in.ByteRangeEnd,
				})
				seqNo++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return fragments, nil
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func anchorText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

var _ Extractor = (*HTMLLinkExtractor)(nil)
