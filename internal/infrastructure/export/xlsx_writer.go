package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// SheetName is the worksheet claims are written to
const SheetName = "Claims"

const timeLayout = "2006-01-02 15:04"

var header = []interface{}{
	"Reference ID", "Employee", "Event Type", "Status", "Currency", "Total Amount",
	"Submitted", "Approved", "Rejected", "Rejection Reason", "Remarks", "Created At",
}

// XLSXWriter implements port.ClaimExporter with excelize
type XLSXWriter struct {
	logger *zap.Logger
}

// NewXLSXWriter creates a new spreadsheet writer
func NewXLSXWriter(logger *zap.Logger) *XLSXWriter {
	return &XLSXWriter{logger: logger}
}

// WriteClaims renders rows into a single-sheet workbook with a header row
func (x *XLSXWriter) WriteClaims(w io.Writer, rows []*entity.ClaimSummary) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := file.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	amountStyle, err := file.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}
	if err := file.SetColStyle(SheetName, "F", amountStyle); err != nil {
		return fmt.Errorf("failed to style amount column: %w", err)
	}

	for i, c := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			c.ReferenceID,
			c.EmployeeName,
			c.EventTypeName,
			c.Status.String(),
			c.CurrencyCode,
			c.TotalAmount.InexactFloat64(),
			formatTime(c.SubmittedDate),
			formatTime(c.ApprovedDate),
			formatTime(c.RejectedDate),
			c.RejectionReason,
			c.Remarks,
			c.CreatedAt.Format(timeLayout),
		}
		if err := file.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := file.WriteTo(w); err != nil {
		x.logger.Error("Failed to write workbook", zap.Error(err))
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	x.logger.Info("Claims exported", zap.Int("row_count", len(rows)))
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

// Verify interface compliance
var _ port.ClaimExporter = (*XLSXWriter)(nil)
