// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/school-finance/internal/application/service"
	"github.com/garyjia/school-finance/internal/infrastructure/auth"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// TokenVerifier validates bearer tokens on mutating routes
type TokenVerifier interface {
	Parse(token string) (*auth.Claims, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker func(ctx context.Context) error

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	// MaxWriteRole is the highest role number allowed to call mutating routes
	MaxWriteRole int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		RequestTimeout: 15 * time.Second,
		MaxWriteRole:   2,
	}
}

// Services groups the application services served over HTTP
type Services struct {
	Fees     service.FeeService
	Invoices service.InvoiceService
	Payments service.PaymentService
	Ledger   service.LedgerService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	tokens     TokenVerifier
	health     HealthChecker
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	services Services,
	tokens TokenVerifier,
	health HealthChecker,
	logger Logger,
) *Server {
	// Set gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		tokens:   tokens,
		health:   health,
		logger:   logger,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.router.Use(gin.Recovery())

	// Logging middleware
	s.router.Use(s.loggingMiddleware())

	s.router.Use(s.timeoutMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.health, s.logger)

	// Health check
	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	{
		// Fee catalog
		api.GET("/feeitems", h.ListFeeItems)
		api.GET("/feeitems/:id", h.GetFeeItem)
		api.GET("/feestructures", h.ListFeeStructures)
		api.GET("/feestructures/resolve", h.ResolveFeeStructure)

		// Invoices and payments
		api.GET("/invoices", h.ListInvoices)
		api.GET("/invoices/:id", h.GetInvoice)
		api.GET("/students/:id/statement", h.GetStatement)
		api.GET("/students/:id/statement.xlsx", h.ExportStatement)
		api.GET("/payments", h.ListPayments)
		api.GET("/payments/:id", h.GetPayment)

		// Chart of accounts, journal and reports
		api.GET("/accounttypes", h.ListAccountTypes)
		api.GET("/accounts", h.ListAccounts)
		api.GET("/accounts/:id", h.GetAccount)
		api.GET("/accounts/:id/ledger", h.GetAccountLedger)
		api.GET("/accounts/:id/ledger.xlsx", h.ExportAccountLedger)
		api.GET("/journalentries", h.ListJournalEntries)
		api.GET("/journalentries/:id", h.GetJournalEntry)
		api.GET("/reports/trialbalance", h.GetTrialBalance)
		api.GET("/reports/trialbalance.xlsx", h.ExportTrialBalance)
	}

	write := api.Group("", s.authMiddleware())
	{
		write.POST("/feeitems", h.CreateFeeItem)
		write.POST("/feestructures", h.CreateFeeStructure)
		write.POST("/invoices", h.IssueInvoice)
		write.POST("/invoicelines", h.AddInvoiceLine)
		write.POST("/billing/runs", h.RunBilling)
		write.POST("/payments", h.ApplyPayment)
		write.POST("/accounts", h.CreateAccount)
		write.POST("/journalentries", h.PostJournalEntry)
		write.POST("/journalentries/:id/reverse", h.ReverseJournalEntry)
		write.POST("/journallines", h.RejectJournalLine)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
