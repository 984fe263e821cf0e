package directory

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func buildWorkbook(t *testing.T, employees, eventTypes [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", SheetEmployees))
	_, err := f.NewSheet(SheetEventTypes)
	require.NoError(t, err)

	for i, row := range employees {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		require.NoError(t, f.SetSheetRow(SheetEmployees, cell, &r))
	}
	for i, row := range eventTypes {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		require.NoError(t, f.SetSheetRow(SheetEventTypes, cell, &r))
	}

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestXLSXReader_ReadDirectory(t *testing.T) {
	buf := buildWorkbook(t,
		[][]interface{}{
			{"id", "first_name", "last_name", "email", "lark_open_id", "active"},
			{1, "Alice", "Wong", "alice@example.com", "ou_alice", "yes"},
			{2, "Bob", "Stone", "", "", "no"},
			{3, "Carol"},
		},
		[][]interface{}{
			{"id", "name"},
			{1, "Conference"},
			{2, "Client Visit"},
		},
	)

	dir, err := NewXLSXReader(zap.NewNop()).ReadDirectory(buf)
	require.NoError(t, err)

	require.Len(t, dir.Employees, 3)
	assert.Equal(t, int64(1), dir.Employees[0].ID)
	assert.Equal(t, "ou_alice", dir.Employees[0].LarkOpenID)
	assert.True(t, dir.Employees[0].Active)
	assert.False(t, dir.Employees[1].Active)
	assert.True(t, dir.Employees[2].Active, "active defaults to true")
	assert.Empty(t, dir.Employees[2].LastName)

	require.Len(t, dir.EventTypes, 2)
	assert.Equal(t, "Client Visit", dir.EventTypes[1].Name)
}

func TestXLSXReader_InvalidRows(t *testing.T) {
	tests := []struct {
		name      string
		employees [][]interface{}
		events    [][]interface{}
		errPart   string
	}{
		{
			name:      "bad employee id",
			employees: [][]interface{}{{"id"}, {"abc", "Alice"}},
			events:    [][]interface{}{{"id", "name"}},
			errPart:   "Employees row 2",
		},
		{
			name:      "missing first name",
			employees: [][]interface{}{{"id"}, {1, ""}},
			events:    [][]interface{}{{"id", "name"}},
			errPart:   "first name",
		},
		{
			name:      "bad active flag",
			employees: [][]interface{}{{"id"}, {1, "Alice", "", "", "", "maybe"}},
			events:    [][]interface{}{{"id", "name"}},
			errPart:   "active",
		},
		{
			name:      "event type without name",
			employees: [][]interface{}{{"id"}},
			events:    [][]interface{}{{"id", "name"}, {5}},
			errPart:   "EventTypes row 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := buildWorkbook(t, tt.employees, tt.events)
			_, err := NewXLSXReader(zap.NewNop()).ReadDirectory(buf)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestXLSXReader_NotAWorkbook(t *testing.T) {
	_, err := NewXLSXReader(zap.NewNop()).ReadDirectory(bytes.NewBufferString("id,name\n1,x\n"))
	assert.Error(t, err)
}
