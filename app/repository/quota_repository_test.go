package repository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clipscout/clipscout/app/models"
)

func setupQuotaDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	require.NoError(t, db.AutoMigrate(&models.MonthlyQuota{}))
	return db
}

func TestQuotaRepositoryIncrementCreatesBucket(t *testing.T) {
	db := setupQuotaDB(t)
	repo := NewQuotaRepository(db)
	monthStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	count, err := repo.Increment(1, monthStart)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.Increment(1, monthStart)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)

	var rows int64
	assert.NoError(t, db.Model(&models.MonthlyQuota{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestQuotaRepositoryIncrementKeepsBucketsSeparate(t *testing.T) {
	db := setupQuotaDB(t)
	repo := NewQuotaRepository(db)
	june := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	july := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.Increment(1, june)
	assert.NoError(t, err)
	_, err = repo.Increment(1, june)
	assert.NoError(t, err)

	count, err := repo.Increment(1, july)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.Increment(2, june)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, err := repo.Get(1, june)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), stored.Count)
}

func TestQuotaRepositoryGetMissingBucketIsZero(t *testing.T) {
	db := setupQuotaDB(t)
	repo := NewQuotaRepository(db)
	monthStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	stored, err := repo.Get(42, monthStart)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), stored.Count)
	assert.Equal(t, uint(42), stored.UserID)
}

func TestQuotaRepositoryConcurrentIncrementsLoseNothing(t *testing.T) {
	db := setupQuotaDB(t)
	repo := NewQuotaRepository(db)
	monthStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	const workers = 25
	var wg sync.WaitGroup
	type result struct {
		count int64
		err   error
	}
	results := make(chan result, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count, err := repo.Increment(7, monthStart)
			results <- result{count: count, err: err}
		}()
	}
	wg.Wait()
	close(results)

	// Every increment reports a distinct post-increment count, so the
	// returned values must be exactly 1..workers in some order.
	seen := make(map[int64]bool, workers)
	for res := range results {
		assert.NoError(t, res.err)
		assert.False(t, seen[res.count], "count %d returned twice", res.count)
		assert.GreaterOrEqual(t, res.count, int64(1))
		assert.LessOrEqual(t, res.count, int64(workers))
		seen[res.count] = true
	}
	assert.Len(t, seen, workers)

	stored, err := repo.Get(7, monthStart)
	assert.NoError(t, err)
	assert.Equal(t, int64(workers), stored.Count)
}
