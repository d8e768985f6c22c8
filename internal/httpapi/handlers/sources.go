package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/models"
)

// SourceHandler serves the read-only /sources routes.
type SourceHandler struct {
	catalog catalog.Catalog
}

// NewSourceHandler returns a SourceHandler backed by cat.
func NewSourceHandler(cat catalog.Catalog) *SourceHandler {
	return &SourceHandler{catalog: cat}
}

// Register wires the source routes into api.
func (h *SourceHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listSources",
		Method:      "GET",
		Path:        "/api/v1/sources",
		Summary:     "List sources",
		Description: "Returns every configured ingestion source",
		Tags:        []string{"Sources"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getSource",
		Method:      "GET",
		Path:        "/api/v1/sources/{id}",
		Summary:     "Get source",
		Description: "Returns one source by ID",
		Tags:        []string{"Sources"},
	}, h.GetByID)
}

// ListSourcesInput has no parameters; the source table is never large
// enough to warrant pagination.
type ListSourcesInput struct{}

// ListSourcesOutput wraps the full source list.
type ListSourcesOutput struct {
	Body Page[*models.Source]
}

// List returns every configured source.
func (h *SourceHandler) List(ctx context.Context, _ *ListSourcesInput) (*ListSourcesOutput, error) {
	sources, err := h.catalog.ListSources(ctx)
	if err != nil {
		return nil, mapError(ctx, "listing sources", err)
	}
	return &ListSourcesOutput{Body: Page[*models.Source]{Records: sources}}, nil
}

// GetSourceInput identifies a source by its hex ID.
type GetSourceInput struct {
	ID string `path:"id" doc:"Source ID (32-hex)"`
}

// GetSourceOutput wraps a single source.
type GetSourceOutput struct {
	Body *models.Source
}

// GetByID returns one source by ID.
func (h *SourceHandler) GetByID(ctx context.Context, input *GetSourceInput) (*GetSourceOutput, error) {
	id, err := models.ParseHexID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid source id", err)
	}
	source, err := h.catalog.GetSource(ctx, id)
	if err != nil {
		return nil, mapError(ctx, "getting source", err)
	}
	if source == nil {
		return nil, huma.Error404NotFound("source " + input.ID + " not found")
	}
	return &GetSourceOutput{Body: source}, nil
}
