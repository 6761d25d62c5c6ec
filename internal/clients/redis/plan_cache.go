package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/fitcoach-backend/internal/observability"
	"github.com/yungbote/fitcoach-backend/internal/platform/envutil"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

// Plan kinds stored in the cache.
const (
	PlanWorkout = "workout"
	PlanMeal    = "meal"
)

// PlanCache holds serialized workout/meal plan blobs per user. Cache errors
// are logged and treated as misses; callers always fall back to the database.
type PlanCache interface {
	Get(ctx context.Context, userID uuid.UUID, kind string) ([]byte, bool)
	Set(ctx context.Context, userID uuid.UUID, kind string, blob []byte)
	Invalidate(ctx context.Context, userID uuid.UUID)
	Close() error
}

type planCache struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewPlanCache connects to REDIS_ADDR. With no address configured it returns
// a no-op cache.
func NewPlanCache(log *logger.Logger) (PlanCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		log.Info("REDIS_ADDR not set; plan cache disabled")
		return NoopPlanCache{}, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	ttl := envutil.Seconds("PLAN_CACHE_TTL_SECONDS", 10*time.Minute)
	return NewPlanCacheWithClient(log, rdb, ttl), nil
}

func NewPlanCacheWithClient(log *logger.Logger, rdb goredis.UniversalClient, ttl time.Duration) PlanCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &planCache{
		log:    log.With("service", "RedisPlanCache"),
		rdb:    rdb,
		prefix: envutil.String("REDIS_KEY_PREFIX", "fitcoach"),
		ttl:    ttl,
	}
}

func (c *planCache) key(userID uuid.UUID, kind string) string {
	return strings.Join([]string{c.prefix, "plan", userID.String(), kind}, ":")
}

func (c *planCache) Get(ctx context.Context, userID uuid.UUID, kind string) ([]byte, bool) {
	raw, err := c.rdb.Get(ctx, c.key(userID, kind)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("plan cache get failed", "user_id", userID, "kind", kind, "error", err)
		}
		observability.Current().IncPlanCache("miss")
		return nil, false
	}
	observability.Current().IncPlanCache("hit")
	return raw, true
}

func (c *planCache) Set(ctx context.Context, userID uuid.UUID, kind string, blob []byte) {
	if len(blob) == 0 {
		return
	}
	if err := c.rdb.Set(ctx, c.key(userID, kind), blob, c.ttl).Err(); err != nil {
		c.log.Warn("plan cache set failed", "user_id", userID, "kind", kind, "error", err)
	}
}

func (c *planCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	keys := []string{c.key(userID, PlanWorkout), c.key(userID, PlanMeal)}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("plan cache invalidate failed", "user_id", userID, "error", err)
	}
}

func (c *planCache) Close() error {
	return c.rdb.Close()
}

// NoopPlanCache always misses.
type NoopPlanCache struct{}

func (NoopPlanCache) Get(context.Context, uuid.UUID, string) ([]byte, bool) { return nil, false }
func (NoopPlanCache) Set(context.Context, uuid.UUID, string, []byte)        {}
func (NoopPlanCache) Invalidate(context.Context, uuid.UUID)                 {}
func (NoopPlanCache) Close() error                                          { return nil }
