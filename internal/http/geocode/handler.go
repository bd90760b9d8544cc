package geocode

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mfiguera/rutero/internal/address"
	"github.com/mfiguera/rutero/internal/geo"
	"github.com/mfiguera/rutero/internal/geocode"
)

type Handler struct {
	svc        *geocode.Service
	normalizer *address.Normalizer
}

func NewHandler(svc *geocode.Service, normalizer *address.Normalizer) *Handler {
	if normalizer == nil {
		normalizer = address.NewNormalizer(nil)
	}

	return &Handler{svc: svc, normalizer: normalizer}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.geocode)
}

type geocodeResponse struct {
	Address     string          `json:"address"`
	Coordinates geo.Coordinates `json:"coordinates"`
}

func (h *Handler) geocode(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("address")
	if raw == "" {
		http.Error(w, "address query parameter is required", http.StatusBadRequest)
		return
	}

	coords, ok, err := h.svc.Resolve(r.Context(), raw, h.normalizer.Normalize(raw))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !ok {
		http.Error(w, "address not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(geocodeResponse{Address: raw, Coordinates: coords}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
