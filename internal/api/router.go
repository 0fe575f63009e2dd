// Package api provides the HTTP surface of the reservation service.
package api

import (
	"agenda/internal/metrics"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// RoutePrefix is prepended to every API route, e.g. "/api".
	RoutePrefix string
	// Metrics is optional. When set, its handler is exposed at MetricsPath.
	Metrics     *metrics.Metrics
	MetricsPath string
}

// NewRouter creates the router with the reservation endpoint and health check.
func NewRouter(logger *slog.Logger, booker Booker, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()
	r.Use(Logging(logger, opts.Metrics))
	r.Use(Recovery(logger))

	reservations := NewReservationHandler(booker, logger, opts.Metrics)

	r.HandleFunc(opts.RoutePrefix+"/agendar", reservations.Handle).Methods(http.MethodPost)
	r.HandleFunc(opts.RoutePrefix+"/health", func(w http.ResponseWriter, _ *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	if opts.Metrics != nil {
		r.Handle(opts.MetricsPath, opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	return r
}
