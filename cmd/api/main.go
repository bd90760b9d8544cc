package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mfiguera/rutero/internal/address"
	"github.com/mfiguera/rutero/internal/config"
	"github.com/mfiguera/rutero/internal/customer"
	customerStore "github.com/mfiguera/rutero/internal/customer/store"
	"github.com/mfiguera/rutero/internal/database"
	"github.com/mfiguera/rutero/internal/delivery"
	deliveryStore "github.com/mfiguera/rutero/internal/delivery/store"
	"github.com/mfiguera/rutero/internal/geocode"
	"github.com/mfiguera/rutero/internal/geocode/nominatim"
	geocodeStore "github.com/mfiguera/rutero/internal/geocode/store"
	ruteroHttp "github.com/mfiguera/rutero/internal/http"
	deliveryHandler "github.com/mfiguera/rutero/internal/http/delivery"
	geocodeHandler "github.com/mfiguera/rutero/internal/http/geocode"
	invoiceHandler "github.com/mfiguera/rutero/internal/http/invoice"
	"github.com/mfiguera/rutero/internal/invoice"
	invoiceStore "github.com/mfiguera/rutero/internal/invoice/store"
	"github.com/mfiguera/rutero/internal/matching"
	matchingStore "github.com/mfiguera/rutero/internal/matching/store"
	"github.com/mfiguera/rutero/internal/route"
	"github.com/mfiguera/rutero/internal/route/osrm"
	routeStore "github.com/mfiguera/rutero/internal/route/store"
	"github.com/mfiguera/rutero/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.InitSchema(context.Background(), db); err != nil {
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	var uploader invoice.Uploader

	if cfg.Storage.AccessKey != "" {
		s3, err := storage.NewS3Uploader(context.Background(), storage.Config{
			Endpoint:      cfg.Storage.Endpoint,
			Region:        cfg.Storage.Region,
			Bucket:        cfg.Storage.Bucket,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			UsePathStyle:  cfg.Storage.UsePathStyle,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			slog.Error("failed to configure object storage", "error", err)
			os.Exit(1)
		}

		uploader = s3
	} else {
		slog.Warn("object storage not configured, invoice images will not be stored")
	}

	normalizer := address.NewNormalizer(nil)

	var (
		geocodeService = geocode.NewService(geocodeStore.New(db), nominatim.New(nominatim.Config{
			BaseURL:   cfg.Nominatim.BaseURL,
			UserAgent: cfg.Nominatim.UserAgent,
			Region:    cfg.Nominatim.Region,
			Country:   cfg.Nominatim.Country,
			Viewbox:   cfg.Nominatim.Viewbox,
		}))
		customerService = customer.NewService(customerStore.New(db), geocodeService)
		invoiceService  = invoice.NewService(invoiceStore.New(db), customerService, uploader, normalizer)
		matchingService = matching.NewService(matchingStore.New(db))
		routeSt         = routeStore.New(db)
		deliverySt      = deliveryStore.New(db)
		deliveryService = delivery.NewService(
			deliverySt,
			customerService,
			geocodeService,
			routeSt,
			osrm.New(cfg.OSRM.BaseURL),
			route.NewOptimizer(nil, cfg.Route.OptimizeBudget),
			normalizer,
			cfg.Depot.Address,
		)
	)

	var (
		deliveryH = deliveryHandler.NewHandler(deliveryService, routeSt, deliverySt)
		invoiceH  = invoiceHandler.NewHandler(invoiceService, matchingService)
		geocodeH  = geocodeHandler.NewHandler(geocodeService, normalizer)
	)

	router := ruteroHttp.New(db, cfg.Server.AllowedOrigins, deliveryH, invoiceH, geocodeH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
