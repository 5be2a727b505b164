package geocoding

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/metrics"
)

const cacheKeyPrefix = "geocode:"

// Cache は住所の保存先です。
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache は Redis を使った Cache 実装です。
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache は RedisCache を生成します。
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get はキャッシュ済みの住所を返します。存在しない場合は false です。
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, cacheKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set は住所を TTL 付きで保存します。
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, cacheKeyPrefix+key, value, ttl).Err()
}

// CachedGeocoder は逆ジオコーディング結果をキャッシュします。
// キャッシュの障害は記録のみ行い、上流の呼び出しを続けます。失敗結果はキャッシュしません。
type CachedGeocoder struct {
	next    location.Geocoder
	cache   Cache
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCachedGeocoder は CachedGeocoder を生成します。
func NewCachedGeocoder(next location.Geocoder, cache Cache, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *CachedGeocoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedGeocoder{next: next, cache: cache, ttl: ttl, logger: logger, metrics: m}
}

// ReverseGeocode はキャッシュを参照し、無ければ上流へ問い合わせます。
func (g *CachedGeocoder) ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error) {
	key := Key(latitude, longitude)

	cached, ok, err := g.cache.Get(ctx, key)
	switch {
	case err != nil:
		g.logger.Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
	case ok:
		g.metrics.IncrementGeocode(metrics.GeocodeHit)
		return cached, nil
	}

	address, err := g.next.ReverseGeocode(ctx, latitude, longitude)
	if err != nil {
		return "", err
	}
	g.metrics.IncrementGeocode(metrics.GeocodeResolved)

	if err := g.cache.Set(ctx, key, address, g.ttl); err != nil {
		g.logger.Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
	}
	return address, nil
}
