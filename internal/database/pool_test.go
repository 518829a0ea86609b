package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BaSui01/recruitflow/config"
)

// =============================================================================
// 🧪 PoolManager 测试
// =============================================================================

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *gorm.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	return mock, gormDB
}

func TestNewPoolManager_NilDB(t *testing.T) {
	_, err := NewPoolManager(nil, DefaultPoolConfig(), zap.NewNop())
	assert.Error(t, err)
}

func TestPoolManager_Ping(t *testing.T) {
	mock, gormDB := setupMockDB(t)

	manager, err := NewPoolManager(gormDB, PoolConfig{MaxOpenConns: 4, MaxIdleConns: 2}, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectPing()
	assert.NoError(t, manager.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	assert.Error(t, manager.Ping(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_WithTransaction_Rollback(t *testing.T) {
	mock, gormDB := setupMockDB(t)

	manager, err := NewPoolManager(gormDB, PoolConfig{MaxOpenConns: 4, MaxIdleConns: 1}, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = manager.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_WithTransactionRetry(t *testing.T) {
	mock, gormDB := setupMockDB(t)

	manager, err := NewPoolManager(gormDB, PoolConfig{MaxOpenConns: 4, MaxIdleConns: 1}, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	attempts := 0
	err = manager.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		if attempts == 1 {
			return errors.New("ERROR: deadlock detected (SQLSTATE 40P01)")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_WithTransactionRetry_NonRetryable(t *testing.T) {
	mock, gormDB := setupMockDB(t)

	manager, err := NewPoolManager(gormDB, PoolConfig{MaxOpenConns: 4, MaxIdleConns: 1}, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err = manager.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		return errors.New("syntax error")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestPoolManager_CloseStopsHealthLoop(t *testing.T) {
	_, gormDB := setupMockDB(t)

	manager, err := NewPoolManager(gormDB, PoolConfig{HealthCheckInterval: time.Hour}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, manager.Close())
	assert.NoError(t, manager.Close())
	assert.Error(t, manager.Ping(context.Background()))
	assert.Error(t, manager.WithTransaction(context.Background(), func(*gorm.DB) error { return nil }))
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("deadlock detected"), true},
		{errors.New("pq: could not serialize access (SQLSTATE 40001)"), true},
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{errors.New("driver: bad connection"), true},
		{errors.New("record not found"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryableError(tt.err), "%v", tt.err)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKey(errors.New("UNIQUE constraint failed: agents.campaign_id, agents.candidate_id")))
	assert.True(t, IsDuplicateKey(errors.New(`ERROR: duplicate key value violates unique constraint "idx_agents_target" (SQLSTATE 23505)`)))
	assert.True(t, IsDuplicateKey(errors.New("Error 1062: Duplicate entry 'x' for key 'idx_agents_target'")))
	assert.False(t, IsDuplicateKey(errors.New("connection refused")))
	assert.False(t, IsDuplicateKey(nil))
}

func TestOpen_SQLite(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", Name: filepath.Join(t.TempDir(), "pool.db")}

	manager, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	require.NoError(t, manager.Ping(context.Background()))
	assert.Equal(t, 1, manager.Stats().MaxOpenConnections)
}

func TestDialector_Unsupported(t *testing.T) {
	_, err := Dialector(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
