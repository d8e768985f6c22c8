package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/models"
)

// ArtifactHandler serves single-artifact lookups.
type ArtifactHandler struct {
	catalog catalog.Catalog
}

// NewArtifactHandler returns an ArtifactHandler backed by cat.
func NewArtifactHandler(cat catalog.Catalog) *ArtifactHandler {
	return &ArtifactHandler{catalog: cat}
}

// Register wires the artifact routes into api.
func (h *ArtifactHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getArtifact",
		Method:      "GET",
		Path:        "/api/v1/artifacts/{id}",
		Summary:     "Get artifact",
		Description: "Returns one artifact by ID",
		Tags:        []string{"Artifacts"},
	}, h.GetByID)
}

// GetArtifactInput identifies an artifact by its hex ID.
type GetArtifactInput struct {
	ID string `path:"id" doc:"Artifact ID (32-hex)"`
}

// GetArtifactOutput wraps a single artifact.
type GetArtifactOutput struct {
	Body *models.Artifact
}

// GetByID returns one artifact by ID.
func (h *ArtifactHandler) GetByID(ctx context.Context, input *GetArtifactInput) (*GetArtifactOutput, error) {
	id, err := models.ParseHexID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid artifact id", err)
	}
	artifact, err := h.catalog.GetArtifactByID(ctx, id)
	if err != nil {
		return nil, mapError(ctx, "getting artifact", err)
	}
	if artifact == nil {
		return nil, huma.Error404NotFound("artifact " + input.ID + " not found")
	}
	return &GetArtifactOutput{Body: artifact}, nil
}
