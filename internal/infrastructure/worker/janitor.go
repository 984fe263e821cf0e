package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// JanitorConfig holds configuration for the orphan-file janitor
type JanitorConfig struct {
	// Schedule is a standard five-field cron expression
	Schedule string
	// GracePeriod protects files whose attachment row may not be committed yet
	GracePeriod time.Duration
	Location    *time.Location
}

// DefaultJanitorConfig returns default configuration
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Schedule:    "17 3 * * *",
		GracePeriod: time.Hour,
		Location:    time.UTC,
	}
}

// JanitorMetrics receives the outcome of each sweep
type JanitorMetrics interface {
	RecordJanitorRun(removed, failed int)
}

// SweepResult summarizes one janitor pass
type SweepResult struct {
	Scanned int
	Removed int
	Failed  int
}

// OrphanJanitor removes stored files that no attachment row references.
// Upload writes the file before the row, so an interrupted upload leaves an
// orphan. Delete removes the file first, then the row, and ignores file
// removal errors, so a failed removal leaves an orphan too.
type OrphanJanitor struct {
	config         JanitorConfig
	fileStorage    port.FileStorage
	attachmentRepo port.AttachmentRepository
	metrics        JanitorMetrics
	logger         *zap.Logger
	now            func() time.Time

	mu        sync.RWMutex
	scheduler *cron.Cron
	ctx       context.Context
	isRunning bool
	lastRun   time.Time
	lastError error
}

// NewOrphanJanitor creates a new janitor. metrics may be nil.
func NewOrphanJanitor(
	config JanitorConfig,
	fileStorage port.FileStorage,
	attachmentRepo port.AttachmentRepository,
	metrics JanitorMetrics,
	logger *zap.Logger,
) *OrphanJanitor {
	defaults := DefaultJanitorConfig()
	if config.Schedule == "" {
		config.Schedule = defaults.Schedule
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = defaults.GracePeriod
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}
	return &OrphanJanitor{
		config:         config,
		fileStorage:    fileStorage,
		attachmentRepo: attachmentRepo,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

// Name returns the worker name for identification
func (j *OrphanJanitor) Name() string {
	return "OrphanJanitor"
}

// Start schedules the sweep
func (j *OrphanJanitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.isRunning {
		return fmt.Errorf("orphan janitor already running")
	}

	scheduler := cron.New(
		cron.WithLocation(j.config.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := scheduler.AddFunc(j.config.Schedule, j.scheduledSweep); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.config.Schedule, err)
	}

	j.ctx = ctx
	j.scheduler = scheduler
	j.isRunning = true
	scheduler.Start()

	j.logger.Info("OrphanJanitor started",
		zap.String("schedule", j.config.Schedule),
		zap.Duration("grace_period", j.config.GracePeriod))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish
func (j *OrphanJanitor) Stop() error {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return nil
	}
	j.isRunning = false
	scheduler := j.scheduler
	j.mu.Unlock()

	<-scheduler.Stop().Done()
	j.logger.Info("OrphanJanitor stopped")
	return nil
}

// Status reports the last sweep
func (j *OrphanJanitor) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Status{Name: j.Name(), Running: j.isRunning}
	if !j.lastRun.IsZero() {
		s.LastRun = j.lastRun.UTC().Format(time.RFC3339)
	}
	if j.lastError != nil {
		s.Error = j.lastError.Error()
	}
	return s
}

func (j *OrphanJanitor) scheduledSweep() {
	j.mu.RLock()
	ctx := j.ctx
	j.mu.RUnlock()

	if _, err := j.Sweep(ctx); err != nil {
		j.logger.Error("Orphan sweep failed", zap.Error(err))
	}
}

// Sweep runs one pass over the claims prefix
func (j *OrphanJanitor) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	files, err := j.fileStorage.List(ctx, entity.ClaimsPrefix)
	if err != nil {
		j.finish(result, err)
		return result, fmt.Errorf("list stored files: %w", err)
	}

	cutoff := j.now().Add(-j.config.GracePeriod)
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		result.Scanned++
		if f.ModTime.After(cutoff) {
			continue
		}

		referenced, err := j.attachmentRepo.ExistsByFilePath(ctx, f.Path)
		if err != nil {
			j.logger.Warn("Failed to check attachment reference",
				zap.String("path", f.Path),
				zap.Error(err))
			result.Failed++
			continue
		}
		if referenced {
			continue
		}

		if err := j.fileStorage.Delete(ctx, f.Path); err != nil {
			j.logger.Warn("Failed to delete orphaned file",
				zap.String("path", f.Path),
				zap.Error(err))
			result.Failed++
			continue
		}
		j.logger.Info("Orphaned file removed",
			zap.String("path", f.Path),
			zap.Int64("size", f.Size))
		result.Removed++
	}

	j.finish(result, nil)
	return result, nil
}

func (j *OrphanJanitor) finish(result SweepResult, err error) {
	j.mu.Lock()
	j.lastRun = j.now()
	j.lastError = err
	j.mu.Unlock()

	if j.metrics != nil {
		j.metrics.RecordJanitorRun(result.Removed, result.Failed)
	}
	j.logger.Info("Orphan sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("removed", result.Removed),
		zap.Int("failed", result.Failed))
}
