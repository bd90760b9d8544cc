package invoice

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/invoice"
	"github.com/mfiguera/rutero/internal/matching"
)

type Handler struct {
	invSvc   *invoice.Service
	matchSvc *matching.Service
}

func NewHandler(invSvc *invoice.Service, matchSvc *matching.Service) *Handler {
	return &Handler{invSvc: invSvc, matchSvc: matchSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.process)
	r.Get("/{id}", h.get)
}

// invoiceDataDTO is the parsed invoice carried in the multipart "data"
// field; the optional "image" field holds the source scan.
type invoiceDataDTO struct {
	InvoiceNumber string                `json:"invoice_number"`
	ClientName    string                `json:"client_name"`
	Address       string                `json:"address"`
	TotalAmount   int64                 `json:"total_amount"`
	ProductItems  []invoice.ProductItem `json:"product_items"`
}

type processResponse struct {
	Invoice    invoiceResponse     `json:"invoice"`
	LinkResult matching.LinkResult `json:"link_result"`
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	var data invoiceDataDTO
	if err := json.Unmarshal([]byte(r.FormValue("data")), &data); err != nil {
		http.Error(w, "data field must hold the invoice JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if data.Address == "" {
		http.Error(w, "address field is required", http.StatusBadRequest)
		return
	}

	params := invoice.ProcessParams{
		InvoiceNumber: data.InvoiceNumber,
		ClientName:    data.ClientName,
		Address:       data.Address,
		TotalAmount:   data.TotalAmount,
		ProductItems:  data.ProductItems,
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()

		img, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "reading image: "+err.Error(), http.StatusBadRequest)
			return
		}

		params.Image = img
		params.ImageName = header.Filename
		params.ImageContentType = header.Header.Get("Content-Type")
	}

	inv, err := h.invSvc.Process(r.Context(), params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	linkResult, err := h.matchSvc.Link(r.Context(), inv)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	resp := processResponse{Invoice: toResponse(inv), LinkResult: linkResult}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid invoice id", http.StatusBadRequest)
		return
	}

	inv, err := h.invSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
