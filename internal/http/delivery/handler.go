package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/delivery"
	"github.com/mfiguera/rutero/internal/route"
	routestore "github.com/mfiguera/rutero/internal/route/store"
)

// RouteGetter reads back a stored daily route.
type RouteGetter interface {
	GetDailyRoute(ctx context.Context, date string) (*route.DailyRoute, error)
}

// ItemGetter reads back a stored delivery item.
type ItemGetter interface {
	GetItem(ctx context.Context, id uuid.UUID) (*delivery.Item, error)
}

type Handler struct {
	svc    *delivery.Service
	routes RouteGetter
	items  ItemGetter
}

func NewHandler(svc *delivery.Service, routes RouteGetter, items ItemGetter) *Handler {
	return &Handler{svc: svc, routes: routes, items: items}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.processReport)
}

func (h *Handler) RouteRoutes(r chi.Router) {
	r.Get("/{date}", h.getRoute)
}

func (h *Handler) ItemRoutes(r chi.Router) {
	r.Get("/{id}", h.getItem)
}

type processReportRequest struct {
	Date  string                `json:"date"`
	Stops []delivery.ReportStop `json:"stops"`
}

func (h *Handler) processReport(w http.ResponseWriter, r *http.Request) {
	var req processReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Date == "" {
		http.Error(w, "date field is required", http.StatusBadRequest)
		return
	}

	result, err := h.svc.ProcessReport(r.Context(), req.Date, req.Stops)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toReportResponse(result)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) getRoute(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	dr, err := h.routes.GetDailyRoute(r.Context(), date)
	if err != nil {
		if errors.Is(err, routestore.ErrNotFound) {
			http.Error(w, "route not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(dr); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid delivery item id", http.StatusBadRequest)
		return
	}

	item, err := h.items.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, delivery.ErrNotFound) {
			http.Error(w, "delivery item not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toItemResponse(item)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
