// Package status serves a read-only HTTP view of the running session.
package status

import (
	"context"
	"net/http"

	metrics "github.com/armon/go-metrics"
	"github.com/go-chi/chi/v5"
	"github.com/omochice/toy-tictactoe-client/internal/session"
)

// SnapshotSource yields the current projection.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (session.Snapshot, error)
}

// SetupRoutes builds the router. sink may be nil, in which case /metrics
// is not mounted.
func SetupRoutes(src SnapshotSource, sink *metrics.InmemSink) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/session", Session(src))
	if sink != nil {
		r.Get("/metrics", Metrics(sink))
	}
	return r
}
