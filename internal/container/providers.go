// Package container provides dependency injection and lifecycle management
// for the school finance service following Clean Architecture principles.
package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/application/service"
	"github.com/garyjia/school-finance/internal/config"
	"github.com/garyjia/school-finance/internal/infrastructure/auth"
	"github.com/garyjia/school-finance/internal/infrastructure/export"
	"github.com/garyjia/school-finance/internal/infrastructure/persistence/repository"
	"github.com/garyjia/school-finance/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/garyjia/school-finance/internal/interfaces/http"
	"github.com/garyjia/school-finance/migrations"
	"github.com/garyjia/school-finance/pkg/database"
	"github.com/garyjia/school-finance/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Reference    port.ReferenceRepository
	FeeItem      port.FeeItemRepository
	FeeStructure port.FeeStructureRepository
	Invoice      port.InvoiceRepository
	Payment      port.PaymentRepository
	Account      port.AccountRepository
	Journal      port.JournalRepository
	Ledger       port.LedgerRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Fee     service.FeeService
	Invoice service.InvoiceService
	Payment service.PaymentService
	Ledger  service.LedgerService
}

// ProvideDatabase opens the database, applies the embedded migrations
// and wraps the connection in a transaction manager.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Reference:    repository.NewReferenceRepository(db.DB, logger),
		FeeItem:      repository.NewFeeItemRepository(db.DB, logger),
		FeeStructure: repository.NewFeeStructureRepository(db.DB, logger),
		Invoice:      repository.NewInvoiceRepository(db.DB, logger),
		Payment:      repository.NewPaymentRepository(db.DB, logger),
		Account:      repository.NewAccountRepository(db.DB, logger),
		Journal:      repository.NewJournalRepository(db.DB, logger),
		Ledger:       repository.NewLedgerRepository(db.DB, logger),
	}, nil
}

// ServiceDeps holds dependencies for creating application services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Billing   config.BillingConfig
	Ledger    config.LedgerConfig
	Logger    *zap.Logger
}

// ProvideServices creates the application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	r := deps.Repos
	logger := utils.NewServiceLogger(deps.Logger)
	exporter := export.NewWorkbookExporter(deps.Logger)
	accounts := service.SystemAccounts{
		ReceivableCode:     deps.Ledger.ReceivableAccountCode,
		CashCode:           deps.Ledger.CashAccountCode,
		DefaultRevenueCode: deps.Ledger.DefaultRevenueAccountCode,
		OverpaymentCode:    deps.Ledger.OverpaymentAccountCode,
	}

	fees := service.NewFeeService(r.Reference, r.FeeItem, r.FeeStructure, r.Account, logger)

	return &ServiceBundle{
		Fee: fees,
		Invoice: service.NewInvoiceService(
			r.Reference, r.FeeItem, r.Invoice, r.Payment, r.Account, r.Journal, r.Ledger,
			fees, exporter, deps.TxManager, accounts, deps.Billing.DefaultDueDays, logger,
		),
		Payment: service.NewPaymentService(
			r.Invoice, r.Payment, r.Account, r.Journal, r.Ledger,
			deps.TxManager, accounts, deps.Billing.AllowOverpayment, logger,
		),
		Ledger: service.NewLedgerService(
			r.Reference, r.Account, r.Journal, r.Ledger, exporter, deps.TxManager, logger,
		),
	}, nil
}

// ProvideTokenManager creates the bearer token manager from auth settings.
func ProvideTokenManager(cfg *config.AuthConfig) *auth.TokenManager {
	return auth.NewTokenManager(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL)
}

// HTTPDeps holds dependencies for the HTTP server.
type HTTPDeps struct {
	Server   config.ServerConfig
	Auth     config.AuthConfig
	Services *ServiceBundle
	Tokens   httpserver.TokenVerifier
	Health   httpserver.HealthChecker
	Logger   *zap.Logger
}

// ProvideHTTPServer creates the HTTP server adapter.
func ProvideHTTPServer(deps *HTTPDeps) (*httpserver.Server, error) {
	if deps == nil || deps.Services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token verifier is required")
	}

	return httpserver.NewServer(
		httpserver.ServerConfig{
			Host:           deps.Server.Host,
			Port:           deps.Server.Port,
			ReadTimeout:    deps.Server.ReadTimeout,
			WriteTimeout:   deps.Server.WriteTimeout,
			RequestTimeout: deps.Server.RequestTimeout,
			MaxWriteRole:   deps.Auth.MaxWriteRole,
		},
		httpserver.Services{
			Fees:     deps.Services.Fee,
			Invoices: deps.Services.Invoice,
			Payments: deps.Services.Payment,
			Ledger:   deps.Services.Ledger,
		},
		deps.Tokens,
		deps.Health,
		utils.NewServiceLogger(deps.Logger),
	), nil
}
