package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/smbcash/cashflow-dashboard/internal/api/handlers"
	"github.com/smbcash/cashflow-dashboard/internal/api/middleware"
	"github.com/smbcash/cashflow-dashboard/internal/config"
	"github.com/smbcash/cashflow-dashboard/internal/jobs"
	"github.com/smbcash/cashflow-dashboard/internal/jobs/inmemory"
	"github.com/smbcash/cashflow-dashboard/internal/logger"
	"github.com/smbcash/cashflow-dashboard/internal/store"
	"github.com/smbcash/cashflow-dashboard/internal/xero"
)

func main() {
	// Parse command-line flags
	var (
		portFlag = flag.String("port", "", "HTTP server port (overrides PORT env)")
		memory   = flag.Bool("memory", false, "use the in-memory store instead of SQLite")
	)
	flag.Parse()

	// Initialize logger
	log := logger.NewService("api")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	// Open the transaction store
	var st store.Store
	if *memory {
		log.Warn().Msg("Using in-memory store - data is lost on restart")
		st = store.NewMemory()
	} else {
		sqliteStore, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("Failed to open database")
		}
		st = sqliteStore
	}
	defer st.Close()

	// Xero integration; without credentials the dashboard syncs demo data
	var oauthClient handlers.OAuthClient
	var fetcher xero.Fetcher
	if cfg.Xero.Configured() {
		client := xero.NewClient(cfg.Xero)
		oauthClient = client
		fetcher = client
	} else {
		log.Warn().Msg("Xero credentials not configured - running in demo mode")
	}
	syncService := xero.NewSyncService(st, fetcher, log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	ctx := context.Background()
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Create job handler for processing sync jobs
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		syncJob, ok := job.(*jobs.SyncTransactionsJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", syncJob.JobID).
			Str("triggered_by", syncJob.TriggeredBy).
			Msg("Processing sync job")

		result, err := syncService.Sync(ctx)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", syncJob.JobID).
				Msg("Sync failed")
			return err
		}

		syncJob.TenantID = result.TenantID
		syncJob.Imported = result.Imported
		syncJob.Skipped = result.Skipped

		log.Info().
			Str("job_id", syncJob.JobID).
			Int("imported", result.Imported).
			Int("skipped", result.Skipped).
			Msg("Sync job completed")

		return nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	transactionsHandler := handlers.NewTransactionsHandler(st, jobQueue, cfg.StartingBalance, log)
	forecastsHandler := handlers.NewForecastsHandler(st, cfg.StartingBalance, log)
	simulationsHandler := handlers.NewSimulationsHandler(st, cfg.StartingBalance, log)
	xeroHandler := handlers.NewXeroHandler(st, oauthClient, cfg.Xero.Configured(), log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodPost:
			transactionsHandler.CreateTransaction(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.Summary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transactionsHandler.EnqueueSync(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.GetTransaction(w, r, id)
		case http.MethodDelete:
			transactionsHandler.DeleteTransaction(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Forecasts endpoints
	mux.HandleFunc("/api/forecasts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			forecastsHandler.ListForecasts(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/forecasts/generate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			forecastsHandler.Generate(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/forecasts/latest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			forecastsHandler.Latest(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/forecasts/old", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			forecastsHandler.DeleteOld(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Simulations endpoints
	mux.HandleFunc("/api/simulations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			simulationsHandler.Simulate(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/simulations/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			simulationsHandler.SimulateBatch(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/simulations/presets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			simulationsHandler.Presets(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Xero endpoints
	mux.HandleFunc("/api/xero/connect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			xeroHandler.Connect(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/xero/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			xeroHandler.Callback(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/xero/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			xeroHandler.Status(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/xero/disconnect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			xeroHandler.Disconnect(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
