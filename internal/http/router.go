package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mfiguera/rutero/internal/http/delivery"
	"github.com/mfiguera/rutero/internal/http/geocode"
	"github.com/mfiguera/rutero/internal/http/invoice"
)

func New(
	db *sql.DB,
	allowedOrigins []string,
	deliveryV1 *delivery.Handler,
	invoiceV1 *invoice.Handler,
	geocodeV1 *geocode.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/delivery-reports", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			deliveryV1.Routes(r)
		})

		r.Route("/routes", deliveryV1.RouteRoutes)

		r.Route("/delivery-items", deliveryV1.ItemRoutes)

		r.Route("/invoices", invoiceV1.Routes)

		r.Route("/geocode", geocodeV1.Routes)
	})

	return router
}
