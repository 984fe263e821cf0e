package service

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/expense-claims/internal/application/port"
)

// ImportSummary counts the rows written by an import
type ImportSummary struct {
	Employees  int `json:"employees"`
	EventTypes int `json:"event_types"`
}

// DirectoryService loads read-only reference data from a spreadsheet
type DirectoryService interface {
	Import(ctx context.Context, r io.Reader) (*ImportSummary, error)
}

type directoryServiceImpl struct {
	reader        port.DirectoryReader
	referenceRepo port.ReferenceDataRepository
	txManager     port.TransactionManager
	logger        Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(
	reader port.DirectoryReader,
	referenceRepo port.ReferenceDataRepository,
	txManager port.TransactionManager,
	logger Logger,
) DirectoryService {
	return &directoryServiceImpl{
		reader:        reader,
		referenceRepo: referenceRepo,
		txManager:     txManager,
		logger:        logger,
	}
}

// Import upserts every employee and event type in one transaction
func (s *directoryServiceImpl) Import(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	dir, err := s.reader.ReadDirectory(r)
	if err != nil {
		s.logger.Error("Failed to read directory", "error", err)
		return nil, fmt.Errorf("read directory: %w", err)
	}

	summary := &ImportSummary{}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, e := range dir.Employees {
			if err := s.referenceRepo.UpsertEmployee(txCtx, e); err != nil {
				return fmt.Errorf("upsert employee %d: %w", e.ID, err)
			}
			summary.Employees++
		}
		for _, et := range dir.EventTypes {
			if err := s.referenceRepo.UpsertEventType(txCtx, et); err != nil {
				return fmt.Errorf("upsert event type %d: %w", et.ID, err)
			}
			summary.EventTypes++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to import directory", "error", err)
		return nil, err
	}

	s.logger.Info("Directory imported", "employees", summary.Employees, "event_types", summary.EventTypes)
	return summary, nil
}
