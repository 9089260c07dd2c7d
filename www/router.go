// Package www serves the read-only JSON API used by dashboards and
// diagnostics tooling. All factory mutation goes through the bus; this
// surface only observes.
package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/engine"
)

type Handlers struct {
	engine *engine.Engine
}

func NewRouter(eng *engine.Engine) http.Handler {
	h := &Handlers{engine: eng}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/api/health", h.apiHealth)

	r.Get("/api/orders/active", h.apiActiveOrders)
	r.Get("/api/orders/completed", h.apiCompletedOrders)
	r.Get("/api/orders/history", h.apiOrderHistory)
	r.Get("/api/orders/{id}", h.apiGetOrder)

	r.Get("/api/pairing", h.apiPairing)
	r.Get("/api/stock", h.apiStock)
	r.Get("/api/layout", h.apiLayout)

	r.Get("/api/audit", h.apiAudit)
	r.Get("/api/production/totals", h.apiProductionTotals)
	r.Get("/api/production/{orderID}", h.apiProduction)

	return r
}
