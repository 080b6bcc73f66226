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

	"github.com/ivolkov/moneyflow/internal/api/handlers"
	"github.com/ivolkov/moneyflow/internal/api/middleware"
	"github.com/ivolkov/moneyflow/internal/config"
	"github.com/ivolkov/moneyflow/internal/ledger"
	"github.com/ivolkov/moneyflow/internal/logger"
	"github.com/ivolkov/moneyflow/internal/provider/truelayer"
	"github.com/ivolkov/moneyflow/internal/store/memory"
	mongostore "github.com/ivolkov/moneyflow/internal/store/mongo"
	"github.com/ivolkov/moneyflow/internal/syncer"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (default: config.yaml in cwd)")
		useMemory  = flag.Bool("memory", false, "Use the in-memory store instead of MongoDB")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(logger.Options{
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
	})

	if cfg.TrueLayer.ClientID == "" || cfg.TrueLayer.ClientSecret == "" {
		log.Warn().Msg("No TrueLayer credentials configured - bank connections will fail")
	}

	ctx := context.Background()

	// Initialize storage
	st := memory.New()
	if !*useMemory {
		mongoClient, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer func() {
			if err := mongoClient.Close(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to close MongoDB client")
			}
		}()

		if err := mongoClient.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure MongoDB indexes")
		}
		st = mongoClient.Store()
	}

	// Initialize provider client and services
	provider := truelayer.NewClient(truelayer.Config{
		ClientID:     cfg.TrueLayer.ClientID,
		ClientSecret: cfg.TrueLayer.ClientSecret,
		RedirectURI:  cfg.TrueLayer.RedirectURI,
		AuthBaseURL:  cfg.TrueLayer.AuthBaseURL,
		APIBaseURL:   cfg.TrueLayer.APIBaseURL,
		Timeout:      time.Duration(cfg.TrueLayer.TimeoutSeconds) * time.Second,
	})

	syncService := syncer.NewService(st, provider, log, cfg.TrueLayer.SyncWindowDays)
	ledgerService := ledger.NewService(st, log)

	// Initialize handlers
	connectionsHandler := handlers.NewConnectionsHandler(syncService, log)
	accountsHandler := handlers.NewAccountsHandler(ledgerService, log)
	transactionsHandler := handlers.NewTransactionsHandler(ledgerService, log)

	// Create router
	mux := http.NewServeMux()

	// Connections endpoints
	mux.HandleFunc("/api/connections", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			connectionsHandler.ListConnections(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/connections/auth-url", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			connectionsHandler.GetAuthURL(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/connections/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/connections/")
		if rest == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Connection ID is required")
			return
		}

		if id, ok := strings.CutSuffix(rest, "/sync"); ok {
			if r.Method == http.MethodPost {
				connectionsHandler.SyncConnection(w, r, id)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
			return
		}

		switch r.Method {
		case http.MethodGet:
			connectionsHandler.GetConnection(w, r, rest)
		case http.MethodDelete:
			connectionsHandler.DeleteConnection(w, r, rest)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Accounts endpoints
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accountsHandler.ListAccounts(w, r)
		case http.MethodPost:
			accountsHandler.CreateAccount(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/accounts/", func(w http.ResponseWriter, r *http.Request) {
		accountID := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
		if accountID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Account ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			accountsHandler.GetAccount(w, r, accountID)
		case http.MethodDelete:
			accountsHandler.DeleteAccount(w, r, accountID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

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

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		transactionID := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if transactionID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.GetTransaction(w, r, transactionID)
		case http.MethodPut:
			transactionsHandler.UpdateTransaction(w, r, transactionID)
		case http.MethodDelete:
			transactionsHandler.DeleteTransaction(w, r, transactionID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// The OAuth callback is the provider's redirect target and the health
	// check is probed by infrastructure, so both sit outside the Identity
	// middleware; the callback's user rides in the state param.
	root := http.NewServeMux()

	root.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	root.HandleFunc("/api/connections/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			connectionsHandler.Callback(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})
	root.Handle("/", middleware.Identity(mux))

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(root),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
