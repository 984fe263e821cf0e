package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/infrastructure/storage"
)

type mockAttachmentRepo struct {
	referenced map[string]bool
	err        error
}

func (m *mockAttachmentRepo) Create(context.Context, *entity.Attachment, entity.ClaimStatus) (bool, error) {
	return true, nil
}

func (m *mockAttachmentRepo) GetByID(context.Context, int64) (*entity.Attachment, error) {
	return nil, nil
}

func (m *mockAttachmentRepo) ListByClaimID(context.Context, int64) ([]*entity.Attachment, error) {
	return nil, nil
}

func (m *mockAttachmentRepo) Delete(context.Context, int64, entity.ClaimStatus) (bool, error) {
	return true, nil
}

func (m *mockAttachmentRepo) DeleteByClaimID(context.Context, int64) error { return nil }

func (m *mockAttachmentRepo) ExistsByFilePath(ctx context.Context, path string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.referenced[path], nil
}

type mockJanitorMetrics struct {
	removed, failed int
}

func (m *mockJanitorMetrics) RecordJanitorRun(removed, failed int) {
	m.removed += removed
	m.failed += failed
}

func writeFile(t *testing.T, fs *storage.LocalFileStorage, base, path string, age time.Duration) {
	t.Helper()
	require.NoError(t, fs.Save(context.Background(), path, []byte("data"), "application/pdf"))
	ts := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(filepath.Join(base, filepath.FromSlash(path)), ts, ts))
}

func TestOrphanJanitor_Sweep(t *testing.T) {
	base := t.TempDir()
	fs := storage.NewLocalFileStorage(base, zap.NewNop())
	writeFile(t, fs, base, "claims/1/kept.pdf", 3*time.Hour)
	writeFile(t, fs, base, "claims/1/orphan.pdf", 3*time.Hour)
	writeFile(t, fs, base, "claims/2/fresh.pdf", time.Minute)
	writeFile(t, fs, base, "other/ignored.pdf", 3*time.Hour)

	repo := &mockAttachmentRepo{referenced: map[string]bool{"claims/1/kept.pdf": true}}
	metrics := &mockJanitorMetrics{}
	j := NewOrphanJanitor(JanitorConfig{GracePeriod: time.Hour}, fs, repo, metrics, zap.NewNop())

	result, err := j.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SweepResult{Scanned: 3, Removed: 1, Failed: 0}, result)
	assert.True(t, fs.Exists(context.Background(), "claims/1/kept.pdf"))
	assert.False(t, fs.Exists(context.Background(), "claims/1/orphan.pdf"))
	assert.True(t, fs.Exists(context.Background(), "claims/2/fresh.pdf"), "inside grace period")
	assert.True(t, fs.Exists(context.Background(), "other/ignored.pdf"), "outside the claims prefix")
	assert.Equal(t, 1, metrics.removed)

	status := j.Status()
	assert.NotEmpty(t, status.LastRun)
	assert.Empty(t, status.Error)
}

func TestOrphanJanitor_Sweep_LookupFailureKeepsFile(t *testing.T) {
	base := t.TempDir()
	fs := storage.NewLocalFileStorage(base, zap.NewNop())
	writeFile(t, fs, base, "claims/1/a.pdf", 2*time.Hour)

	metrics := &mockJanitorMetrics{}
	j := NewOrphanJanitor(JanitorConfig{GracePeriod: time.Hour}, fs, &mockAttachmentRepo{err: errors.New("database is locked")}, metrics, zap.NewNop())

	result, err := j.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, fs.Exists(context.Background(), "claims/1/a.pdf"))
	assert.Equal(t, 1, metrics.failed)
}

func TestOrphanJanitor_Sweep_EmptyStore(t *testing.T) {
	fs := storage.NewLocalFileStorage(t.TempDir(), zap.NewNop())
	j := NewOrphanJanitor(JanitorConfig{}, fs, &mockAttachmentRepo{}, nil, zap.NewNop())

	result, err := j.Sweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.Scanned)
}

func TestOrphanJanitor_StartStop(t *testing.T) {
	fs := storage.NewLocalFileStorage(t.TempDir(), zap.NewNop())

	t.Run("invalid schedule", func(t *testing.T) {
		j := NewOrphanJanitor(JanitorConfig{Schedule: "every tuesday"}, fs, &mockAttachmentRepo{}, nil, zap.NewNop())
		assert.Error(t, j.Start(context.Background()))
		assert.False(t, j.Status().Running)
	})

	t.Run("lifecycle", func(t *testing.T) {
		j := NewOrphanJanitor(JanitorConfig{Schedule: "*/5 * * * *"}, fs, &mockAttachmentRepo{}, nil, zap.NewNop())
		require.NoError(t, j.Start(context.Background()))
		assert.True(t, j.Status().Running)
		assert.Error(t, j.Start(context.Background()), "already running")

		require.NoError(t, j.Stop())
		assert.False(t, j.Status().Running)
		require.NoError(t, j.Stop(), "stop is idempotent")
	})
}
