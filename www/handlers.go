package www

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/pairing"
)

func (h *Handlers) jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func limitParam(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func (h *Handlers) apiHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, map[string]any{
		"status":    "ok",
		"messaging": h.engine.MsgClient().IsConnected(),
		"time":      time.Now(),
	})
}

func (h *Handlers) apiActiveOrders(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.Orchestrator.ActiveOrders())
}

func (h *Handlers) apiCompletedOrders(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.Orchestrator.CompletedOrders())
}

func (h *Handlers) apiOrderHistory(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.DB().ListCompletedOrders(limitParam(r, 100))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, list)
}

// apiGetOrder looks an order up in the live queue first, then history.
func (h *Handlers) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if o, ok := h.engine.Orchestrator.Get(id); ok {
		h.jsonOK(w, o)
		return
	}
	co, err := h.engine.DB().GetCompletedOrder(id)
	if err != nil {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	h.jsonOK(w, co)
}

func (h *Handlers) apiPairing(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, map[string][]pairing.Device{
		"modules":    h.engine.Modules.Snapshot(),
		"transports": h.engine.Vehicles.Snapshot(),
	})
}

func (h *Handlers) apiStock(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, map[string]any{
		"warehouses":  h.engine.Stock.Snapshot(),
		"loadingBays": h.engine.Bays.Snapshot(),
	})
}

func (h *Handlers) apiLayout(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.Graph().Layout())
}

func (h *Handlers) apiAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.DB().ListAuditLog(limitParam(r, 200))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}

func (h *Handlers) apiProductionTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.engine.DB().ProductionTotals()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, totals)
}

func (h *Handlers) apiProduction(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.DB().ListProduction(chi.URLParam(r, "orderID"))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}
