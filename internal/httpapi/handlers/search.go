package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/models"
)

// SearchHandler serves the four fragment-search predicate variants, all
// sharing catalog.SearchParams/Search and differing only in which
// fields the request body fills in.
type SearchHandler struct {
	catalog catalog.Catalog
}

// NewSearchHandler returns a SearchHandler backed by cat.
func NewSearchHandler(cat catalog.Catalog) *SearchHandler {
	return &SearchHandler{catalog: cat}
}

// Register wires the four search routes into api.
func (h *SearchHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "searchFragmentsText",
		Method:      "POST",
		Path:        "/api/v1/search/text",
		Summary:     "Search fragments by text",
		Description: "Substring match over fragment text_content",
		Tags:        []string{"Search"},
	}, h.Text)

	huma.Register(api, huma.Operation{
		OperationID: "searchFragmentsNgram",
		Method:      "POST",
		Path:        "/api/v1/search/ngram",
		Summary:     "Search fragments by n-gram",
		Description: "Substring match over fragment text_content, the same match as text search; no n-gram similarity scoring is applied",
		Tags:        []string{"Search"},
	}, h.Ngram)

	huma.Register(api, huma.Operation{
		OperationID: "searchFragmentsJSONPath",
		Method:      "POST",
		Path:        "/api/v1/search/json-path",
		Summary:     "Search fragments by JSON path",
		Description: "Fragments whose json_content at a path equals one of a set of values",
		Tags:        []string{"Search"},
	}, h.JSONPath)

	huma.Register(api, huma.Operation{
		OperationID: "searchFragmentsKeyed",
		Method:      "POST",
		Path:        "/api/v1/search/keyed",
		Summary:     "Search fragments by key set",
		Description: "Fragments carrying every requested fragment_key (AND semantics)",
		Tags:        []string{"Search"},
	}, h.Keyed)
}

// keyTermBody is one named key and its acceptable values for a keyed
// search request; every term must match for a fragment to be returned.
type keyTermBody struct {
	Key    string   `json:"key" doc:"Fragment key name, e.g. ada_code"`
	Values []string `json:"values" doc:"Values accepted for this key"`
}

// searchInputBody is the common request shape; each operation only uses
// the subset of fields relevant to its mode.
type searchInputBody struct {
	SourceID         string              `json:"source_id" doc:"Source ID (32-hex)"`
	GenerationID     int64               `json:"generation_id,omitempty" doc:"Defaults to the source's latest generation"`
	ExternalID       string              `json:"external_id,omitempty"`
	AggregationLevel models.FragmentType `json:"aggregation_level,omitempty"`
	Query            string              `json:"query,omitempty"`
	JSONPath         string              `json:"json_path,omitempty"`
	JSONValues       []string            `json:"json_values,omitempty"`
	Keys             []keyTermBody       `json:"keys,omitempty"`
	Offset           int                 `json:"offset,omitempty" minimum:"0"`
	Limit            int                 `json:"limit,omitempty" minimum:"1" maximum:"1000"`
}

// SearchInput wraps one search request body.
type SearchInput struct {
	Body searchInputBody
}

// SearchOutput is a page of matching fragments.
type SearchOutput struct {
	Body Page[models.Fragment]
}

func (h *SearchHandler) run(ctx context.Context, mode catalog.SearchMode, body searchInputBody) (*SearchOutput, error) {
	sourceID, err := models.ParseHexID(body.SourceID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid source id", err)
	}
	limit := body.Limit
	if limit == 0 {
		limit = 50
	}

	keys := make([]catalog.KeySearchTerm, 0, len(body.Keys))
	for _, k := range body.Keys {
		keys = append(keys, catalog.KeySearchTerm{Key: k.Key, Values: k.Values})
	}

	result, err := h.catalog.Search(ctx, catalog.SearchParams{
		Mode:             mode,
		SourceID:         sourceID,
		GenerationID:     body.GenerationID,
		ExternalID:       body.ExternalID,
		AggregationLevel: body.AggregationLevel,
		Query:            body.Query,
		JSONPath:         body.JSONPath,
		JSONValues:       body.JSONValues,
		Keys:             keys,
		Offset:           body.Offset,
		Limit:            limit,
	})
	if err != nil {
		return nil, mapError(ctx, "searching fragments", err)
	}
	return &SearchOutput{Body: Page[models.Fragment]{Records: result.Records, NextOffset: result.NextOffset}}, nil
}

// Text runs the substring-match search.
func (h *SearchHandler) Text(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	return h.run(ctx, catalog.SearchText, input.Body)
}

// Ngram runs the n-gram search mode, which the catalog serves with the same
// substring (LIKE) match as Text; it does no n-gram similarity scoring.
func (h *SearchHandler) Ngram(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	return h.run(ctx, catalog.SearchNgram, input.Body)
}

// JSONPath runs the JSON-path equality search.
func (h *SearchHandler) JSONPath(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	return h.run(ctx, catalog.SearchJSON, input.Body)
}

// Keyed runs the fragment-key AND-membership search.
func (h *SearchHandler) Keyed(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	return h.run(ctx, catalog.SearchKeyed, input.Body)
}
