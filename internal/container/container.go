package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/dispatcher"
	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/application/service"
	"github.com/garyjia/expense-claims/internal/infrastructure/metrics"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-claims/internal/infrastructure/worker"
	"github.com/garyjia/expense-claims/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	notifier    port.Notifier
	fileStorage port.FileStorage
	metrics     *metrics.Recorder

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Workers
	workers *worker.Manager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Claim      port.ClaimRepository
	Expense    port.ExpenseRepository
	Attachment port.AttachmentRepository
	AuditLog   port.AuditLogRepository
	Reference  port.ReferenceDataRepository
	Sequence   port.ReferenceSequenceRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Claims      service.ClaimService
	Expenses    service.ExpenseService
	Attachments service.AttachmentService
	Audit       service.AuditService
	Query       service.QueryService
	Directory   service.DirectoryService
	// Notification is nil when Lark is not configured
	Notification service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
	Workers    []worker.Status            `json:"workers,omitempty"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
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

// Start initializes all components and begins processing.
// Components are initialized in dependency order:
// 1. Database, migrations and repositories
// 2. External clients (Lark) and file storage
// 3. Event dispatcher
// 4. Application services and their observers
// 5. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initExternal(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.logger.Info("Storage and external clients initialized")

	disp, err := ProvideDispatcher(c.logger, c.metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.dispatcher = disp

	services, err := ProvideServices(&ServiceDeps{
		Config:      c.config,
		Repos:       c.repositories,
		TxManager:   c.txManager,
		FileStorage: c.fileStorage,
		Notifier:    c.notifier,
		Dispatcher:  c.dispatcher,
		Metrics:     c.metrics,
		Logger:      c.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services
	c.logger.Info("Application services initialized")

	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started")

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

	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	// Drains pending notifications before the database goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	mark := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	switch {
	case c.db == nil:
		mark("database", ComponentHealth{Message: "not initialized"})
	default:
		if err := c.db.PingContext(ctx); err != nil {
			mark("database", ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			mark("database", ComponentHealth{Healthy: true})
		}
	}

	switch {
	case c.dispatcher == nil:
		mark("dispatcher", ComponentHealth{Message: "not initialized"})
	case c.closed.Load():
		mark("dispatcher", ComponentHealth{Message: "closed"})
	default:
		mark("dispatcher", ComponentHealth{Healthy: true})
	}

	switch {
	case c.workers == nil:
		mark("workers", ComponentHealth{Message: "not initialized"})
	default:
		status.Workers = c.workers.Statuses()
		mark("workers", ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", len(status.Workers)),
		})
	}

	return status
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(c.ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = bundle.DB
	c.txManager = bundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		_ = c.db.Close()
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initExternal() error {
	fs, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.fileStorage = fs
	c.notifier = ProvideNotifier(&c.config.Lark, c.logger)
	c.metrics = metrics.NewRecorder()
	return nil
}

func (c *Container) initWorkers() error {
	loc, err := c.config.Location()
	if err != nil {
		return err
	}

	workers, err := ProvideWorkers(&WorkerDeps{
		Config:      &c.config.Janitor,
		Location:    loc,
		Repos:       c.repositories,
		FileStorage: c.fileStorage,
		Metrics:     c.metrics,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers

	return c.workers.StartAll(c.ctx)
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// FileStorage returns the attachment store.
func (c *Container) FileStorage() port.FileStorage {
	return c.fileStorage
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
