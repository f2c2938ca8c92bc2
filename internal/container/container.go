package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/school-finance/internal/config"
	"github.com/garyjia/school-finance/internal/infrastructure/auth"
	httpserver "github.com/garyjia/school-finance/internal/interfaces/http"
	"github.com/garyjia/school-finance/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure
	database     *DatabaseBundle
	repositories *RepositoryBundle
	tokens       *auth.TokenManager

	// Application
	services *ServiceBundle

	// Interfaces
	server *httpserver.Server

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Database, migrations and repositories
// 2. Application services
// 3. Token manager and HTTP server
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("path", c.config.Database.Path))

	// Step 2: Initialize application services
	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 3: Initialize HTTP server
	if err := c.initServer(); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}
	c.logger.Info("HTTP server initialized", zap.String("address", c.server.Address()))

	if err := c.database.DB.Health(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			c.logger.Error("Failed to stop HTTP server", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop server: %w", err))
		}
	}

	if c.database != nil {
		if err := c.database.DB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// IsReady returns true if the container has been started successfully.
func (c *Container) IsReady() bool {
	return c.ready.Load()
}

// Health checks the health of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.database == nil {
		status.Overall = false
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		return status
	}

	if err := c.database.DB.Health(ctx); err != nil {
		status.Overall = false
		status.Components["database"] = ComponentHealth{Healthy: false, Message: err.Error()}
	} else {
		status.Components["database"] = ComponentHealth{Healthy: true}
	}

	return status
}

// initDatabase initializes the database connection and repositories.
func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.database = bundle

	repos, err := ProvideRepositories(bundle.DB, c.logger)
	if err != nil {
		return err
	}
	c.repositories = repos

	return nil
}

// initServices initializes application services.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:     c.repositories,
		TxManager: c.database.TransactionMgr,
		Billing:   c.config.Billing,
		Ledger:    c.config.Ledger,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

// initServer initializes the token manager and HTTP server.
func (c *Container) initServer() error {
	c.tokens = ProvideTokenManager(&c.config.Auth)

	db := c.database.DB
	server, err := ProvideHTTPServer(&HTTPDeps{
		Server:   c.config.Server,
		Auth:     c.config.Auth,
		Services: c.services,
		Tokens:   c.tokens,
		Health:   db.Health,
		Logger:   c.logger,
	})
	if err != nil {
		return err
	}
	c.server = server
	return nil
}

// Getters for accessing container components

// Database returns the underlying database connection.
func (c *Container) Database() *database.DB {
	return c.database.DB
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Tokens returns the bearer token manager.
func (c *Container) Tokens() *auth.TokenManager {
	return c.tokens
}

// Server returns the HTTP server.
func (c *Container) Server() *httpserver.Server {
	return c.server
}
