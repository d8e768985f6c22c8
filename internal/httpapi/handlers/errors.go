// Package handlers implements the Huma operations internal/httpapi.Server
// exposes: paginated reads over the catalog plus fragment search and
// deferred-disaggregation admin queries, grounded on
// internal/http/handlers/job.go's per-route Register + typed
// Input/Output struct pattern.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/cif/internal/models"
)

// mapError turns a catalog/domain error into the Huma error Huma will
// serialize, following spec.md's error-handling design: NotFound and
// Validation are client errors the caller can't fix by retrying;
// Timeout is the one case expected to recover on retry, hence 504
// rather than 500.
func mapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return huma.NewError(http.StatusGatewayTimeout, "database deadline exceeded")
	}
	var ke *models.KindError
	if errors.As(err, &ke) {
		switch ke.Kind {
		case models.KindNotFound:
			return huma.Error404NotFound(ke.Message)
		case models.KindValidation:
			return huma.NewError(http.StatusUnprocessableEntity, ke.Message)
		case models.KindTimeout:
			return huma.NewError(http.StatusGatewayTimeout, ke.Message)
		}
	}
	return huma.Error500InternalServerError(op+" failed", err)
}

// Page is the shared paginated-response envelope every list/search
// endpoint returns: { next_offset: int | null, records: [...] }.
type Page[T any] struct {
	NextOffset *int `json:"next_offset"`
	Records    []T  `json:"records"`
}

// nextOffset computes the envelope's next_offset: nil once a page comes
// back shorter than the requested limit (no more rows to fetch).
func nextOffset(offset, limit, returned int) *int {
	if returned < limit {
		return nil
	}
	n := offset + returned
	return &n
}
