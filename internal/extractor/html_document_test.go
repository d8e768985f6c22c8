package extractor

import (
	"testing"

	"github.com/jmylchreest/cif/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLDocumentExtractor_CollapsesTextAndDiscardsMarkup(t *testing.T) {
	e, err := NewHTMLDocumentExtractor(nil)
	require.NoError(t, err)

	html := `<html><body><h1>Hello</h1><p>the quick <b>brown</b> fox</p></body></html>`
	fragments, err := e.CalcFragments(Input{
		ArtifactID:   models.NewHexID(),
		GenerationID: 1,
		Content:      []byte(html),
	})
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, models.FragmentDocument, fragments[0].Type)
	assert.Contains(t, fragments[0].TextContent, "hello")
	assert.Contains(t, fragments[0].TextContent, "quick")
	assert.Contains(t, fragments[0].TextContent, "brown")
	assert.NotContains(t, fragments[0].TextContent, "<")
}

func TestHTMLDocumentExtractor_FiltersStopWordsAndShortTokens(t *testing.T) {
	e, err := NewHTMLDocumentExtractor(nil)
	require.NoError(t, err)

	fragments, err := e.CalcFragments(Input{
		Content: []byte(`<p>the a cat is on the mat</p>`),
	})
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.NotContains(t, fragments[0].TextContent, " the ")
	assert.NotContains(t, fragments[0].TextContent, " a ")
	assert.Contains(t, fragments[0].TextContent, "cat")
	assert.Contains(t, fragments[0].TextContent, "mat")
}

func TestHTMLLinkExtractor_OneFragmentPerAnchor(t *testing.T) {
	e, err := NewHTMLLinkExtractor(nil)
	require.NoError(t, err)

	fragments, err := e.CalcFragments(Input{
		Content: []byte(`<a href="/a">First</a><p>text</p><a href="/b">Second link</a>`),
	})
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	assert.Equal(t, "/a First", fragments[0].TextContent)
	assert.Equal(t, "/b Second link", fragments[1].TextContent)
	for _, f := range fragments {
		assert.Equal(t, models.FragmentLink, f.Type)
	}
}

func TestHTMLLinkExtractor_SkipsAnchorsWithoutHref(t *testing.T) {
	e, err := NewHTMLLinkExtractor(nil)
	require.NoError(t, err)

	fragments, err := e.CalcFragments(Input{Content: []byte(`<a name="top">no href</a>`)})
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestHTMLTitleExtractor_ExtractsTitle(t *testing.T) {
	e, err := NewHTMLTitleExtractor(nil)
	require.NoError(t, err)

	fragments, err := e.CalcFragments(Input{
		Content: []byte(`<html><head><title>My Document</title></head><body></body></html>`),
	})
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, models.FragmentTitle, fragments[0].Type)
	assert.Equal(t, "My Document", fragments[0].TextContent)
}

func TestHTMLTitleExtractor_NoTitleYieldsNoFragment(t *testing.T) {
	e, err := NewHTMLTitleExtractor(nil)
	require.NoError(t, err)

	fragments, err := e.CalcFragments(Input{Content: []byte(`<html><body>no title here</body></html>`)})
	require.NoError(t, err)
	assert.Empty(t, fragments)
}
