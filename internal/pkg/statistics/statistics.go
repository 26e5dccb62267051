package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/clipscout/clipscout/app/models"
	"github.com/clipscout/clipscout/internal/pkg/cache"
	"github.com/clipscout/clipscout/internal/pkg/database"
)

const (
	CacheKeySearchesTotal = "statistics:searches:total"
	CacheKeySearchesDaily = "statistics:searches:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers         = "statistics:users:total"
	CacheExpiration       = 30 * time.Minute
)

// StatisticsData holds the public landing-page numbers.
type StatisticsData struct {
	TodaySearches int
	TotalUsers    int
	TotalSearches int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached numbers are due for a refresh.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) >= cacheUpdateInterval
}

// GetStatistics serves the cached numbers, recomputing them from the
// database when the cache is cold or stale.
func GetStatistics() StatisticsData {
	if ShouldUpdateCache() {
		UpdateCache()
	}

	return StatisticsData{
		TodaySearches: readCachedInt(fmt.Sprintf(CacheKeySearchesDaily, time.Now().UTC().Format("2006-01-02"))),
		TotalUsers:    readCachedInt(CacheKeyUsers),
		TotalSearches: readCachedInt(CacheKeySearchesTotal),
	}
}

// UpdateCache recomputes the counters from the database and stores them.
func UpdateCache() {
	db := database.GetDB()

	var totalSearches int64
	if err := db.Model(&models.SearchLog{}).Count(&totalSearches).Error; err != nil {
		log.Printf("statistics: total search count failed: %v", err)
		return
	}

	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	var todaySearches int64
	if err := db.Model(&models.SearchLog{}).Where("created_at >= ?", dayStart).Count(&todaySearches).Error; err != nil {
		log.Printf("statistics: daily search count failed: %v", err)
		return
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("statistics: user count failed: %v", err)
		return
	}

	writeCachedInt(CacheKeySearchesTotal, totalSearches)
	writeCachedInt(fmt.Sprintf(CacheKeySearchesDaily, dayStart.Format("2006-01-02")), todaySearches)
	writeCachedInt(CacheKeyUsers, totalUsers)

	cacheUpdateMutex.Lock()
	lastCacheUpdate = time.Now()
	cacheUpdateMutex.Unlock()
}

func readCachedInt(key string) int {
	raw, err := cache.Get(key)
	if err != nil || raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

func writeCachedInt(key string, value int64) {
	if err := cache.Set(key, strconv.FormatInt(value, 10), CacheExpiration); err != nil {
		log.Printf("statistics: cache write for %s failed: %v", key, err)
	}
}
