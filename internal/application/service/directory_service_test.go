package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

func TestDirectoryService_Import(t *testing.T) {
	refs := newMockReferenceRepo()
	tx := &mockTxManager{}
	reader := &mockDirectoryReader{dir: &port.Directory{
		Employees:  []*entity.Employee{{ID: 1, FirstName: "Alice"}, {ID: 3, FirstName: "Cara"}},
		EventTypes: []*entity.EventType{{ID: 1, Name: "Conference"}},
	}}
	svc := NewDirectoryService(reader, refs, tx, &mockLogger{})

	summary, err := svc.Import(context.Background(), strings.NewReader(""))

	require.NoError(t, err)
	assert.Equal(t, &ImportSummary{Employees: 2, EventTypes: 1}, summary)
	assert.Equal(t, 3, refs.upserted)
	assert.Equal(t, 1, tx.calls)
}

func TestDirectoryService_Import_Errors(t *testing.T) {
	t.Run("unreadable workbook", func(t *testing.T) {
		svc := NewDirectoryService(&mockDirectoryReader{err: errors.New("zip: not a valid zip file")}, newMockReferenceRepo(), &mockTxManager{}, &mockLogger{})

		_, err := svc.Import(context.Background(), strings.NewReader("nope"))
		assert.Error(t, err)
	})

	t.Run("upsert failure", func(t *testing.T) {
		refs := newMockReferenceRepo()
		refs.upsertErr = errors.New("constraint failed")
		reader := &mockDirectoryReader{dir: &port.Directory{Employees: []*entity.Employee{{ID: 1}}}}
		svc := NewDirectoryService(reader, refs, &mockTxManager{}, &mockLogger{})

		_, err := svc.Import(context.Background(), strings.NewReader(""))
		assert.ErrorContains(t, err, "upsert employee 1")
	})
}
