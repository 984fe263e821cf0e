package service

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/claimquery"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// MaxExportRows caps the rows written by Export
const MaxExportRows = 10000

// QueryService searches and exports claims
type QueryService interface {
	Search(ctx context.Context, params claimquery.Params) (claimquery.Result[*entity.ClaimSummary], error)
	// Export writes every claim matching params, ignoring paging, up to MaxExportRows.
	// It returns the number of rows written.
	Export(ctx context.Context, params claimquery.Params, w io.Writer) (int, error)
}

type queryServiceImpl struct {
	claimRepo    port.ClaimRepository
	exporter     port.ClaimExporter
	pageDefaults claimquery.PageDefaults
	logger       Logger
	settings
}

// NewQueryService creates a new QueryService
func NewQueryService(
	claimRepo port.ClaimRepository,
	exporter port.ClaimExporter,
	pageDefaults claimquery.PageDefaults,
	logger Logger,
	opts ...Option,
) QueryService {
	return &queryServiceImpl{
		claimRepo:    claimRepo,
		exporter:     exporter,
		pageDefaults: pageDefaults,
		logger:       logger,
		settings:     newSettings(opts),
	}
}

// Search returns one page of claims. Unknown filter values degrade to no restriction.
func (s *queryServiceImpl) Search(ctx context.Context, params claimquery.Params) (claimquery.Result[*entity.ClaimSummary], error) {
	q := claimquery.NormalizeIn(params, s.pageDefaults, s.location)

	items, total, err := s.claimRepo.Search(ctx, q)
	if err != nil {
		s.logger.Error("Failed to search claims", "error", err)
		return claimquery.Result[*entity.ClaimSummary]{}, fmt.Errorf("search claims: %w", err)
	}

	return claimquery.NewResult(items, total, q.Page), nil
}

// Export writes the filtered result set as a spreadsheet
func (s *queryServiceImpl) Export(ctx context.Context, params claimquery.Params, w io.Writer) (int, error) {
	q := claimquery.NormalizeIn(params, s.pageDefaults, s.location)
	q.Page = claimquery.Page{Number: 1, Size: MaxExportRows}

	items, total, err := s.claimRepo.Search(ctx, q)
	if err != nil {
		s.logger.Error("Failed to search claims for export", "error", err)
		return 0, fmt.Errorf("search claims: %w", err)
	}
	if total > int64(len(items)) {
		s.logger.Info("Claim export truncated", "total", total, "written", len(items))
	}

	if err := s.exporter.WriteClaims(w, items); err != nil {
		s.logger.Error("Failed to write claim export", "error", err)
		return 0, fmt.Errorf("write export: %w", err)
	}

	return len(items), nil
}
