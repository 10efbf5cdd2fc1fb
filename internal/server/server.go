package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"core-ledger/internal/config"
	"core-ledger/internal/handler"
	"core-ledger/internal/repository"
	"core-ledger/internal/service"

	"github.com/gorilla/mux"
)

// Server represents the HTTP server
type Server struct {
	router   *mux.Router
	server   *http.Server
	bank     *service.Bank
	detector *service.FraudDetector
	logger   *slog.Logger
	port     string

	reviewInterval time.Duration
	stopReview     context.CancelFunc
	reviewDone     chan struct{}
}

// NewServer creates a new server instance over an empty in-memory ledger
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	rules, err := cfg.FraudRules()
	if err != nil {
		return nil, err
	}

	// Initialize ledger (journal + account arena)
	journal := repository.NewJournal(time.Now, logger)
	store := repository.NewStore(journal, logger)

	// Initialize services
	bank := service.NewBank(store, logger)
	detector := service.NewFraudDetector(rules, time.Now, logger)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(bank)
	transactionHandler := handler.NewTransactionHandler(bank)
	fraudHandler := handler.NewFraudHandler(detector, bank)

	// Setup router
	router := mux.NewRouter()

	// Add middleware for logging
	router.Use(loggingMiddleware(logger))

	// Customer routes
	router.HandleFunc("/customers", accountHandler.RegisterCustomer).Methods("POST")
	router.HandleFunc("/customers/{customer_id}", accountHandler.GetCustomer).Methods("GET")

	// Account routes
	router.HandleFunc("/accounts", accountHandler.OpenAccount).Methods("POST")
	router.HandleFunc("/accounts/{account_number}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{account_number}/history", accountHandler.GetHistory).Methods("GET")
	router.HandleFunc("/accounts/{account_number}/deposits", transactionHandler.Deposit).Methods("POST")
	router.HandleFunc("/accounts/{account_number}/withdrawals", transactionHandler.Withdraw).Methods("POST")
	router.HandleFunc("/accounts/{account_number}/interest", transactionHandler.ApplyInterest).Methods("POST")

	// Transaction routes
	router.HandleFunc("/transactions", transactionHandler.Transfer).Methods("POST")
	router.HandleFunc("/transactions", transactionHandler.List).Methods("GET")

	// Fraud review routes
	router.HandleFunc("/fraud/monitor", fraudHandler.Monitor).Methods("POST")
	router.HandleFunc("/fraud/flagged", fraudHandler.Flagged).Methods("GET")
	router.HandleFunc("/fraud/alerts", fraudHandler.Alerts).Methods("GET")
	router.HandleFunc("/fraud/blacklist", fraudHandler.Blacklist).Methods("POST")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	return &Server{
		router:         router,
		bank:           bank,
		detector:       detector,
		logger:         logger,
		reviewInterval: cfg.Fraud.ReviewInterval,
	}, nil
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create response wrapper to capture status code
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server on the specified port, plus the periodic fraud
// review when an interval is configured
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	// Get the actual port being used
	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	// Create HTTP server
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	// Start server in background
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed to start", "error", err)
		}
	}()

	if s.reviewInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopReview = cancel
		s.reviewDone = make(chan struct{})
		go func() {
			defer close(s.reviewDone)
			s.detector.Run(ctx, s.bank, s.reviewInterval)
		}()
	}

	return s.port, nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	// Stop periodic review
	if s.stopReview != nil {
		s.stopReview()
		<-s.reviewDone
	}

	// Shutdown HTTP server
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// Bank returns the ledger served by this instance
func (s *Server) Bank() *service.Bank {
	return s.bank
}

// Detector returns the fraud detector served by this instance
func (s *Server) Detector() *service.FraudDetector {
	return s.detector
}

// NewLogger builds the process logger from configuration
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	// Initialize logger - use io.Discard for tests
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		// Test environment - use discard logger
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		// Production environment - use stdout
		logger = NewLogger(cfg, os.Stdout)
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	// Start the server and get the actual port
	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		return nil, "", err
	}

	return server, port, nil
}
