package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dkotenko/paycore/internal/api"
	"github.com/dkotenko/paycore/internal/config"
	"github.com/dkotenko/paycore/internal/ledger"
	"github.com/dkotenko/paycore/internal/provider"
	"github.com/dkotenko/paycore/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// The ledger's lifecycle is owned here: open the durable store, hand it
	// to the orchestrator by reference, close it on exit.
	var store service.Ledger
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		pg, err := ledger.NewPostgresLedger(cfg.DBSource)
		if err != nil {
			log.Fatalf("Unable to open postgres ledger: %v", err)
		}
		defer pg.Close()
		store = pg
	default:
		journal, err := ledger.OpenJournal(cfg.JournalPath)
		if err != nil {
			log.Fatalf("Unable to open journal ledger: %v", err)
		}
		defer journal.Close()
		store = journal
	}

	gateway := provider.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeBaseURL)
	cards := provider.NewCardNetworkClient(cfg.CardNetworkURL, cfg.CardNetworkKey)
	payments := service.NewPayments(store, cards, gateway, logger)
	handler := api.NewHandler(payments)

	// Router
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	handler.Register(apiV1)

	log.Printf("Server starting on :%s (ledger backend: %s)", cfg.Port, cfg.LedgerBackend)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
