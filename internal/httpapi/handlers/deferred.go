package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/models"
	"github.com/jmylchreest/cif/internal/queue"
)

// DeferredHandler serves admin queries over the deferred_disaggregation
// table: listing rows stuck in a given status, and requeuing a FAILED
// row for another delivery attempt.
type DeferredHandler struct {
	catalog   catalog.Catalog
	publisher queue.Publisher
}

// NewDeferredHandler returns a DeferredHandler backed by cat. publisher
// may be nil, in which case Requeue only resets the row's status without
// re-publishing a message (the next periodic reconciliation, if any, is
// expected to pick it back up).
func NewDeferredHandler(cat catalog.Catalog, publisher queue.Publisher) *DeferredHandler {
	return &DeferredHandler{catalog: cat, publisher: publisher}
}

// Register wires the deferred-disaggregation admin routes into api.
func (h *DeferredHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listDeferredDisaggregations",
		Method:      "GET",
		Path:        "/api/v1/deferred",
		Summary:     "List deferred disaggregations by status",
		Description: "Paginated deferred_disaggregation rows filtered to one status",
		Tags:        []string{"Deferred"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "requeueDeferredDisaggregation",
		Method:      "POST",
		Path:        "/api/v1/deferred/{id}/requeue",
		Summary:     "Requeue a deferred disaggregation",
		Description: "Resets a FAILED row to PENDING and re-publishes its message",
		Tags:        []string{"Deferred"},
	}, h.Requeue)
}

// ListDeferredInput selects a status and a page.
type ListDeferredInput struct {
	Status string `query:"status" default:"FAILED" enum:"PENDING,DONE,FAILED" doc:"Row status to filter on"`
	Offset int    `query:"offset" default:"0" minimum:"0"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"1000"`
}

// ListDeferredOutput is a page of deferred_disaggregation rows.
type ListDeferredOutput struct {
	Body Page[models.DeferredDisaggregation]
}

// List returns deferred_disaggregation rows in one status.
func (h *DeferredHandler) List(ctx context.Context, input *ListDeferredInput) (*ListDeferredOutput, error) {
	rows, _, err := h.catalog.ListByStatus(ctx, models.DeferredStatus(input.Status), input.Offset, input.Limit)
	if err != nil {
		return nil, mapError(ctx, "listing deferred disaggregations", err)
	}
	resp := &ListDeferredOutput{}
	resp.Body.Records = rows
	resp.Body.NextOffset = nextOffset(input.Offset, input.Limit, len(rows))
	return resp, nil
}

// RequeueDeferredInput identifies the row to requeue.
type RequeueDeferredInput struct {
	ID int64 `path:"id" doc:"deferred_disaggregation.id"`
}

// RequeueDeferredOutput wraps the row's new state.
type RequeueDeferredOutput struct {
	Body *models.DeferredDisaggregation
}

// Requeue resets a row to PENDING and, if a Publisher is wired,
// re-publishes its message so a worker picks it up again.
func (h *DeferredHandler) Requeue(ctx context.Context, input *RequeueDeferredInput) (*RequeueDeferredOutput, error) {
	row, err := h.catalog.Requeue(ctx, input.ID)
	if err != nil {
		return nil, mapError(ctx, "requeuing deferred disaggregation", err)
	}
	if row == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("deferred disaggregation %d not found", input.ID))
	}

	if h.publisher != nil {
		payload, err := json.Marshal(row.ToMessage())
		if err != nil {
			return nil, mapError(ctx, "marshaling requeue message", err)
		}
		if err := h.publisher.Publish(ctx, payload); err != nil {
			return nil, mapError(ctx, "publishing requeue message", err)
		}
	}

	return &RequeueDeferredOutput{Body: row}, nil
}
