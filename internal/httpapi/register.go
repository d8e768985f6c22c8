package httpapi

import (
	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/httpapi/handlers"
	"github.com/jmylchreest/cif/internal/queue"
)

// RegisterHandlers mounts every read-path handler onto s's Huma API.
// publisher may be nil; only the deferred-disaggregation requeue
// endpoint uses it, and degrades to a status-only reset without one.
func RegisterHandlers(s *Server, cat catalog.Catalog, publisher queue.Publisher) {
	handlers.NewSourceHandler(cat).Register(s.API())
	handlers.NewGenerationHandler(cat).Register(s.API())
	handlers.NewArtifactHandler(cat).Register(s.API())
	handlers.NewSearchHandler(cat).Register(s.API())
	handlers.NewDeferredHandler(cat, publisher).Register(s.API())
}
