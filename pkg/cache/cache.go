package cache

import (
	"context"
	"encoding/json"
	"time"

	"fieldos/internal/model"
	"fieldos/pkg/config"

	"github.com/redis/go-redis/v9"
)

var (
	client    *redis.Client
	tenantTTL = 5 * time.Minute
)

// Initialize creates the redis client for the tenant cache. An empty Addr
// leaves the cache disabled; every lookup then falls through to the database.
func Initialize(cfg *config.RedisConfig) error {
	if cfg.Addr == "" {
		return nil
	}

	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if cfg.TenantTTL > 0 {
		tenantTTL = cfg.TenantTTL
	}

	return client.Ping(context.Background()).Err()
}

// Enabled reports whether a redis client is configured.
func Enabled() bool {
	return client != nil
}

// Close closes the redis connection if one was opened.
func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}

func tenantKey(id string) string {
	return "fieldos:tenant:" + id
}

// GetTenant returns the cached tenant row, or nil on miss or when the cache
// is disabled. Cache errors are treated as misses; the caller falls back to
// the database.
func GetTenant(ctx context.Context, id string) *model.Tenant {
	if client == nil {
		return nil
	}

	raw, err := client.Get(ctx, tenantKey(id)).Bytes()
	if err != nil {
		return nil
	}

	var tenant model.Tenant
	if err := json.Unmarshal(raw, &tenant); err != nil {
		return nil
	}
	return &tenant
}

// SetTenant stores the tenant row with the configured TTL. Invalidation is
// TTL-only; tenant rows change rarely and a short TTL bounds staleness.
func SetTenant(ctx context.Context, tenant *model.Tenant) {
	if client == nil || tenant == nil {
		return
	}

	raw, err := json.Marshal(tenant)
	if err != nil {
		return
	}
	client.Set(ctx, tenantKey(tenant.ID), raw, tenantTTL)
}
