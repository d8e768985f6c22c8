package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/models"
)

// GenerationHandler serves generation listings, the artifacts new to a
// generation, and generation-to-generation diffs.
type GenerationHandler struct {
	catalog catalog.Catalog
}

// NewGenerationHandler returns a GenerationHandler backed by cat.
func NewGenerationHandler(cat catalog.Catalog) *GenerationHandler {
	return &GenerationHandler{catalog: cat}
}

// Register wires the generation routes into api.
func (h *GenerationHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getLatestGeneration",
		Method:      "GET",
		Path:        "/api/v1/sources/{id}/generations/latest",
		Summary:     "Get latest generation",
		Description: "Returns the highest generation_id recorded for a source",
		Tags:        []string{"Generations"},
	}, h.GetLatest)

	huma.Register(api, huma.Operation{
		OperationID: "listGenerationArtifacts",
		Method:      "GET",
		Path:        "/api/v1/sources/{id}/generations/{generation_id}/artifacts",
		Summary:     "List artifacts new to a generation",
		Description: "Paginated artifacts first created in the given generation",
		Tags:        []string{"Generations"},
	}, h.ListArtifacts)

	huma.Register(api, huma.Operation{
		OperationID: "diffGenerations",
		Method:      "GET",
		Path:        "/api/v1/sources/{id}/diff",
		Summary:     "Diff two generations",
		Description: "Classifies every external_id present in either generation as INSERTED, DELETED, UPDATED, or NONE",
		Tags:        []string{"Generations"},
	}, h.Diff)
}

// GetLatestGenerationInput identifies the source.
type GetLatestGenerationInput struct {
	ID string `path:"id" doc:"Source ID (32-hex)"`
}

// GetLatestGenerationOutput reports the latest generation_id.
type GetLatestGenerationOutput struct {
	Body struct {
		GenerationID int64 `json:"generation_id"`
	}
}

// GetLatest returns the source's highest generation_id.
func (h *GenerationHandler) GetLatest(ctx context.Context, input *GetLatestGenerationInput) (*GetLatestGenerationOutput, error) {
	sourceID, err := models.ParseHexID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid source id", err)
	}
	genID, err := h.catalog.LatestGenerationID(ctx, sourceID)
	if err != nil {
		return nil, mapError(ctx, "getting latest generation", err)
	}
	resp := &GetLatestGenerationOutput{}
	resp.Body.GenerationID = genID
	return resp, nil
}

// ListGenerationArtifactsInput identifies the generation and a page.
type ListGenerationArtifactsInput struct {
	ID           string `path:"id" doc:"Source ID (32-hex)"`
	GenerationID int64  `path:"generation_id" doc:"Generation ID"`
	Offset       int    `query:"offset" default:"0" minimum:"0"`
	Limit        int    `query:"limit" default:"50" minimum:"1" maximum:"1000"`
}

// ListGenerationArtifactsOutput is a page of artifacts.
type ListGenerationArtifactsOutput struct {
	Body Page[models.Artifact]
}

// ListArtifacts returns the artifacts newly created in one generation.
func (h *GenerationHandler) ListArtifacts(ctx context.Context, input *ListGenerationArtifactsInput) (*ListGenerationArtifactsOutput, error) {
	sourceID, err := models.ParseHexID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid source id", err)
	}
	artifacts, _, err := h.catalog.NewArtifactsInGeneration(ctx, sourceID, input.GenerationID, input.Offset, input.Limit)
	if err != nil {
		return nil, mapError(ctx, "listing generation artifacts", err)
	}
	resp := &ListGenerationArtifactsOutput{}
	resp.Body.Records = artifacts
	resp.Body.NextOffset = nextOffset(input.Offset, input.Limit, len(artifacts))
	return resp, nil
}

// DiffGenerationsInput names the two generations to compare.
type DiffGenerationsInput struct {
	ID   string `path:"id" doc:"Source ID (32-hex)"`
	From int64  `query:"from" doc:"Earlier generation_id"`
	To   int64  `query:"to" doc:"Later generation_id"`
}

// DiffGenerationsOutput is the full diff classification.
type DiffGenerationsOutput struct {
	Body struct {
		Entries []catalog.DiffEntry `json:"entries"`
	}
}

// Diff classifies every external_id present in either generation.
func (h *GenerationHandler) Diff(ctx context.Context, input *DiffGenerationsInput) (*DiffGenerationsOutput, error) {
	sourceID, err := models.ParseHexID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid source id", err)
	}
	entries, err := h.catalog.Diff(ctx, sourceID, input.From, input.To)
	if err != nil {
		return nil, mapError(ctx, "diffing generations", err)
	}
	resp := &DiffGenerationsOutput{}
	resp.Body.Entries = entries
	return resp, nil
}
