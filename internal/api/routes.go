package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router собирает chi роутер со всеми маршрутами.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(Recovery(h.logger))

	// Health и метрики без логирования запросов
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(Logging(h.logger))

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/cycles", h.TriggerCycle)
			r.Get("/cycles/last", h.LastCycle)

			if h.qualifier != nil {
				r.Post("/leads/{id}/qualify", h.QualifyLead)
				r.Post("/leads/{id}/rearm", h.RearmLead)
			}
		})

		if h.unsubscriber != nil {
			r.Get("/unsubscribe", h.Unsubscribe)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		NotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		MethodNotAllowed(w)
	})

	return r
}
