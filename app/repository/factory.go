package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles the repository instances sharing one DB handle.
type Repositories struct {
	User        UserRepository
	Entitlement EntitlementRepository
	Quota       QuotaRepository
	SearchLog   SearchLogRepository
}

// NewRepositories creates all repositories against the given DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Entitlement: NewEntitlementRepository(db),
		Quota:       NewQuotaRepository(db),
		SearchLog:   NewSearchLogRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetEntitlementRepository returns the entitlement repository instance
func (f *Factory) GetEntitlementRepository() EntitlementRepository {
	return f.GetRepositories().Entitlement
}

// GetQuotaRepository returns the quota repository instance
func (f *Factory) GetQuotaRepository() QuotaRepository {
	return f.GetRepositories().Quota
}

// GetSearchLogRepository returns the search log repository instance
func (f *Factory) GetSearchLogRepository() SearchLogRepository {
	return f.GetRepositories().SearchLog
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the process-wide factory; InitializeFactory must
// have been called during startup.
func GetGlobalFactory() *Factory {
	return globalFactory
}
