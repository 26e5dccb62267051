package quota

import (
	"time"

	"github.com/clipscout/clipscout/app/models"
)

// FreeMonthlyLimit is the number of searches a free-tier user gets per
// calendar month.
const FreeMonthlyLimit = 5

// Unlimited is the sentinel count/limit returned for premium callers that
// bypass the counter entirely.
const Unlimited int64 = -1

// MonthStart truncates the given instant to the first instant of its calendar
// month in UTC. The bucket key is the month, so rollover needs no reset
// operation.
func MonthStart(now time.Time) time.Time {
	t := now.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Usage describes a user's current-month consumption.
type Usage struct {
	Count     int64 `json:"count"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
	Unlimited bool  `json:"unlimited"`
}

// Store is the persistence surface the counter needs. The repository
// implementation backs it with an atomic upsert.
type Store interface {
	Get(userID uint, monthStart time.Time) (*models.MonthlyQuota, error)
	Increment(userID uint, monthStart time.Time) (int64, error)
}

// Counter tracks free-tier search usage per user per month.
type Counter struct {
	store Store
}

// NewCounter creates a counter from an injected store.
func NewCounter(store Store) *Counter {
	return &Counter{store: store}
}

// Usage returns the current-month consumption for the user.
func (c *Counter) Usage(userID uint, now time.Time) (Usage, error) {
	q, err := c.store.Get(userID, MonthStart(now))
	if err != nil {
		return Usage{}, err
	}
	remaining := int64(FreeMonthlyLimit) - q.Count
	if remaining < 0 {
		remaining = 0
	}
	return Usage{
		Count:     q.Count,
		Limit:     FreeMonthlyLimit,
		Remaining: remaining,
	}, nil
}

// Increment bumps the current-month counter and returns the new count.
// Callers must invoke this only after a confirmed upstream search success,
// never before; a denied or failed search must not consume quota.
func (c *Counter) Increment(userID uint, now time.Time) (int64, error) {
	return c.store.Increment(userID, MonthStart(now))
}

// UnlimitedUsage is the response premium callers get; increments for them are
// a no-op on the caller side.
func UnlimitedUsage() Usage {
	return Usage{
		Count:     0,
		Limit:     Unlimited,
		Remaining: Unlimited,
		Unlimited: true,
	}
}
