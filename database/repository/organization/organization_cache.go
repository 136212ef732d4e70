package organizationRepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"civicdesk/models"
	"civicdesk/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CachedOrganizationRepo is a read-through Redis cache in front of another
// OrganizationRepository. Writes go to the inner store and invalidate the key.
type CachedOrganizationRepo struct {
	inner OrganizationRepository
	cache *redis.Client
	ttl   time.Duration
}

// NewCachedRepo wraps inner with a Redis cache. A zero ttl uses the default.
func NewCachedRepo(inner OrganizationRepository, cache *redis.Client, ttl time.Duration) *CachedOrganizationRepo {
	if ttl <= 0 {
		ttl = utils.DefaultConfigCacheTTL
	}
	return &CachedOrganizationRepo{inner: inner, cache: cache, ttl: ttl}
}

func serviceKey(organizationID, serviceType string) string {
	return fmt.Sprintf("%ssvc:%s:%s", utils.ConfigCachePrefix, organizationID, serviceType)
}

func calendarKey(organizationID string) string {
	return fmt.Sprintf("%scal:%s", utils.ConfigCachePrefix, organizationID)
}

// GetServiceConfig returns the cached config or loads and caches it.
func (r *CachedOrganizationRepo) GetServiceConfig(ctx context.Context, organizationID, serviceType string) (*models.ServiceConfig, error) {
	key := serviceKey(organizationID, serviceType)
	var cfg models.ServiceConfig
	if r.readCache(ctx, key, &cfg) {
		return &cfg, nil
	}
	loaded, err := r.inner.GetServiceConfig(ctx, organizationID, serviceType)
	if err != nil {
		return nil, err
	}
	r.writeCache(ctx, key, loaded)
	return loaded, nil
}

// SaveServiceConfig persists cfg and drops the cached copy.
func (r *CachedOrganizationRepo) SaveServiceConfig(ctx context.Context, cfg *models.ServiceConfig) error {
	if err := r.inner.SaveServiceConfig(ctx, cfg); err != nil {
		return err
	}
	r.invalidate(ctx, serviceKey(cfg.OrganizationID, cfg.ServiceType))
	return nil
}

// GetCalendar returns the cached calendar or loads and caches it.
func (r *CachedOrganizationRepo) GetCalendar(ctx context.Context, organizationID string) (*models.WorkingCalendar, error) {
	key := calendarKey(organizationID)
	var cal models.WorkingCalendar
	if r.readCache(ctx, key, &cal) {
		return &cal, nil
	}
	loaded, err := r.inner.GetCalendar(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	r.writeCache(ctx, key, loaded)
	return loaded, nil
}

// SaveCalendar persists cal and drops the cached copy.
func (r *CachedOrganizationRepo) SaveCalendar(ctx context.Context, cal *models.WorkingCalendar) error {
	if err := r.inner.SaveCalendar(ctx, cal); err != nil {
		return err
	}
	r.invalidate(ctx, calendarKey(cal.OrganizationID))
	return nil
}

// readCache never fails the caller: a Redis miss or outage falls through to the store.
func (r *CachedOrganizationRepo) readCache(ctx context.Context, key string, dst interface{}) bool {
	raw, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			utils.GetLogger().Warn("config cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		utils.GetLogger().Warn("config cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (r *CachedOrganizationRepo) writeCache(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		utils.GetLogger().Warn("config cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachedOrganizationRepo) invalidate(ctx context.Context, key string) {
	if err := r.cache.Del(ctx, key).Err(); err != nil {
		utils.GetLogger().Warn("config cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
