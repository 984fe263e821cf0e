// Package directory imports employee and event type reference data from a
// spreadsheet export of the organisation directory.
package directory

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// Sheet names expected in the workbook
const (
	SheetEmployees  = "Employees"
	SheetEventTypes = "EventTypes"
)

// XLSXReader implements port.DirectoryReader
type XLSXReader struct {
	logger *zap.Logger
}

// NewXLSXReader creates a new directory reader
func NewXLSXReader(logger *zap.Logger) *XLSXReader {
	return &XLSXReader{logger: logger}
}

// ReadDirectory parses both sheets. The first row of each sheet is a header.
// Employees columns: id, first name, last name, email, lark open id, active.
// EventTypes columns: id, name.
func (x *XLSXReader) ReadDirectory(r io.Reader) (*port.Directory, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	dir := &port.Directory{}

	employees, err := file.GetRows(SheetEmployees)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", SheetEmployees, err)
	}
	for i, row := range dataRows(employees) {
		emp, err := parseEmployee(row)
		if err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", SheetEmployees, i+2, err)
		}
		dir.Employees = append(dir.Employees, emp)
	}

	eventTypes, err := file.GetRows(SheetEventTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", SheetEventTypes, err)
	}
	for i, row := range dataRows(eventTypes) {
		id, err := parseID(cell(row, 0))
		if err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", SheetEventTypes, i+2, err)
		}
		name := cell(row, 1)
		if name == "" {
			return nil, fmt.Errorf("sheet %s row %d: name is required", SheetEventTypes, i+2)
		}
		dir.EventTypes = append(dir.EventTypes, &entity.EventType{ID: id, Name: name})
	}

	x.logger.Info("Directory parsed",
		zap.Int("employees", len(dir.Employees)),
		zap.Int("event_types", len(dir.EventTypes)))

	return dir, nil
}

// dataRows drops the header; blank rows keep their position so row numbers in errors stay right
func dataRows(rows [][]string) [][]string {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}

func parseEmployee(row []string) (*entity.Employee, error) {
	id, err := parseID(cell(row, 0))
	if err != nil {
		return nil, err
	}
	first := cell(row, 1)
	if first == "" {
		return nil, fmt.Errorf("first name is required")
	}
	active := true
	if v := strings.ToLower(cell(row, 5)); v != "" {
		switch v {
		case "1", "true", "yes", "y", "active":
			active = true
		case "0", "false", "no", "n", "inactive":
			active = false
		default:
			return nil, fmt.Errorf("invalid active flag %q", v)
		}
	}
	return &entity.Employee{
		ID:         id,
		FirstName:  first,
		LastName:   cell(row, 2),
		Email:      cell(row, 3),
		LarkOpenID: cell(row, 4),
		Active:     active,
	}, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Verify interface compliance
var _ port.DirectoryReader = (*XLSXReader)(nil)
