package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-claims/pkg/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{Path: filepath.Join(t.TempDir(), "claims.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, zap.NewNop()).Up(context.Background(), sqlite.Migrations())
	require.NoError(t, err)

	refs := NewReferenceDataRepository(db.DB, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, refs.UpsertEmployee(ctx, &entity.Employee{ID: 1, FirstName: "Alice", LastName: "Wong", Active: true}))
	require.NoError(t, refs.UpsertEmployee(ctx, &entity.Employee{ID: 2, FirstName: "Bob", LastName: "Stone", Active: false}))
	require.NoError(t, refs.UpsertEventType(ctx, &entity.EventType{ID: 1, Name: "Conference"}))
	require.NoError(t, refs.UpsertEventType(ctx, &entity.EventType{ID: 2, Name: "Client Visit"}))

	return db
}
