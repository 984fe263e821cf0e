package container

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/dispatcher"
	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/application/service"
	"github.com/garyjia/expense-claims/internal/domain/claimquery"
	"github.com/garyjia/expense-claims/internal/domain/event"
	"github.com/garyjia/expense-claims/internal/infrastructure/directory"
	"github.com/garyjia/expense-claims/internal/infrastructure/export"
	infraLark "github.com/garyjia/expense-claims/internal/infrastructure/external/lark"
	"github.com/garyjia/expense-claims/internal/infrastructure/inspect"
	"github.com/garyjia/expense-claims/internal/infrastructure/metrics"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-claims/internal/infrastructure/storage"
	"github.com/garyjia/expense-claims/internal/infrastructure/worker"
	"github.com/garyjia/expense-claims/pkg/database"
	"github.com/garyjia/expense-claims/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.Open(ctx, database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	applied, err := database.NewMigrator(db, logger).Up(ctx, sqlite.Migrations())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Migrations applied", zap.Int("count", applied))

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
		Claim:      repository.NewClaimRepository(db.DB, logger),
		Expense:    repository.NewExpenseRepository(db.DB, logger),
		Attachment: repository.NewAttachmentRepository(db.DB, logger),
		AuditLog:   repository.NewAuditLogRepository(db.DB, logger),
		Reference:  repository.NewReferenceDataRepository(db.DB, logger),
		Sequence:   repository.NewSequenceRepository(db.DB, logger),
	}, nil
}

// ProvideNotifier creates the Lark messenger, or nil when Lark is not configured.
func ProvideNotifier(cfg *LarkConfig, logger *zap.Logger) port.Notifier {
	larkCfg := infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		BaseURL:   cfg.BaseURL,
	}
	if !larkCfg.Enabled() {
		logger.Info("Lark credentials not configured, notifications disabled")
		return nil
	}
	return infraLark.NewMessenger(infraLark.NewSDKClient(larkCfg, logger), logger)
}

// ProvideStorage creates the configured FileStorage driver.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	switch cfg.Driver {
	case StorageDriverS3:
		s3, err := storage.NewS3FileStorage(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s3, nil
	case StorageDriverLocal, "":
		return storage.NewLocalFileStorage(cfg.LocalDir, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Async observers call Lark; these bound how long and how many at once.
const (
	asyncObserverTimeout  = 15 * time.Second
	asyncObserverInFlight = 8
)

// ProvideDispatcher creates the post-commit event dispatcher. Async observer
// failures are counted alongside inline ones.
func ProvideDispatcher(logger *zap.Logger, recorder *metrics.Recorder) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	opts := []dispatcher.Option{
		dispatcher.WithLogger(utils.NewKeyValueLogger(logger)),
		dispatcher.WithAsyncTimeout(asyncObserverTimeout),
		dispatcher.WithMaxInFlight(asyncObserverInFlight),
	}
	if recorder != nil {
		opts = append(opts, dispatcher.WithAsyncFailureHook(func(evt *event.Event, _ string, _ error) {
			recorder.RecordObserverFailure(evt.Type.String())
		}))
	}
	return dispatcher.NewDispatcher(opts...), nil
}

// ServiceDeps holds dependencies required for creating application services.
type ServiceDeps struct {
	Config      *Config
	Repos       *RepositoryBundle
	TxManager   port.TransactionManager
	FileStorage port.FileStorage
	Notifier    port.Notifier
	Dispatcher  dispatcher.Dispatcher
	Metrics     *metrics.Recorder
	Logger      *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// audit trail and notifications to the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	loc, err := deps.Config.Location()
	if err != nil {
		return nil, err
	}

	logger := utils.NewKeyValueLogger(deps.Logger)
	opts := []service.Option{service.WithLocation(loc), service.WithMetrics(deps.Metrics)}
	repos := deps.Repos

	audit := service.NewAuditService(repos.AuditLog, logger, opts...)
	audit.Subscribe(deps.Dispatcher)

	bundle := &ServiceBundle{
		Claims: service.NewClaimService(
			repos.Claim, repos.Expense, repos.Attachment, repos.Reference,
			service.NewReferenceGenerator(repos.Sequence, deps.Config.Reference.Prefix, opts...),
			deps.TxManager, deps.FileStorage, deps.Dispatcher, logger, opts...,
		),
		Expenses: service.NewExpenseService(
			repos.Claim, repos.Expense, repos.Reference, deps.TxManager, deps.Dispatcher, logger, opts...,
		),
		Attachments: service.NewAttachmentService(
			repos.Claim, repos.Attachment, deps.TxManager, deps.FileStorage, inspect.NewInspector(deps.Logger),
			service.AttachmentPolicy{
				MaxSize:      deps.Config.Attachments.MaxSize,
				AllowedTypes: deps.Config.Attachments.AllowedTypes,
			},
			deps.Dispatcher, logger, opts...,
		),
		Audit: audit,
		Query: service.NewQueryService(repos.Claim, export.NewXLSXWriter(deps.Logger), claimquery.PageDefaults{
			Size:    deps.Config.Query.DefaultPageSize,
			MaxSize: deps.Config.Query.MaxPageSize,
		}, logger, opts...),
		Directory: service.NewDirectoryService(directory.NewXLSXReader(deps.Logger), repos.Reference, deps.TxManager, logger),
	}

	if deps.Notifier != nil {
		bundle.Notification = service.NewNotificationService(repos.Claim, repos.Reference, deps.Notifier, deps.Config.Lark.ApproverChatID, logger)
		bundle.Notification.Subscribe(deps.Dispatcher)
	}

	return bundle, nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Config      *JanitorConfig
	Location    *time.Location
	Repos       *RepositoryBundle
	FileStorage port.FileStorage
	Metrics     *metrics.Recorder
	Logger      *zap.Logger
}

// ProvideWorkers creates and registers all background workers.
// Workers are registered but not started.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.FileStorage == nil {
		return nil, fmt.Errorf("file storage is required")
	}

	manager := worker.NewManager(deps.Logger)
	if deps.Config == nil || !deps.Config.Enabled {
		deps.Logger.Info("Orphan janitor disabled")
		return manager, nil
	}

	manager.Register(worker.NewOrphanJanitor(worker.JanitorConfig{
		Schedule:    deps.Config.Schedule,
		GracePeriod: deps.Config.GracePeriod,
		Location:    deps.Location,
	}, deps.FileStorage, deps.Repos.Attachment, deps.Metrics, deps.Logger))

	return manager, nil
}
