package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"catalog-service/pkg/config"
)

// Invalidator signals downstream caches that catalog data changed. Consumers
// subscribe elsewhere; this side only publishes. Failures are logged and
// swallowed so a broken cache layer never fails a catalog mutation.
type Invalidator interface {
	InvalidateProducts(ctx context.Context, reason string, ids ...uuid.UUID)
	InvalidateCatalog(ctx context.Context, reason string)
}

type event struct {
	Tag       string    `json:"tag"`
	Reason    string    `json:"reason"`
	IDs       []string  `json:"ids,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

// RedisInvalidator publishes invalidation events as JSON on a pub/sub
// channel.
type RedisInvalidator struct {
	rdb     *goredis.Client
	channel string
	log     *zap.Logger
}

func NewRedisInvalidator(cfg *config.RedisConfig, log *zap.Logger) (*RedisInvalidator, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisInvalidator{rdb: rdb, channel: cfg.Channel, log: log}, nil
}

func (r *RedisInvalidator) InvalidateProducts(ctx context.Context, reason string, ids ...uuid.UUID) {
	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		strs = append(strs, id.String())
	}
	r.publish(ctx, event{Tag: "products", Reason: reason, IDs: strs, EmittedAt: time.Now().UTC()})
}

func (r *RedisInvalidator) InvalidateCatalog(ctx context.Context, reason string) {
	r.publish(ctx, event{Tag: "catalog", Reason: reason, EmittedAt: time.Now().UTC()})
}

func (r *RedisInvalidator) publish(ctx context.Context, e event) {
	raw, err := json.Marshal(e)
	if err != nil {
		r.log.Warn("invalidation event marshal failed", zap.Error(err))
		return
	}
	if err := r.rdb.Publish(ctx, r.channel, raw).Err(); err != nil {
		r.log.Warn("invalidation publish failed",
			zap.String("tag", e.Tag),
			zap.String("reason", e.Reason),
			zap.Error(err))
	}
}

func (r *RedisInvalidator) Close() error {
	return r.rdb.Close()
}

// NopInvalidator is used when no redis address is configured.
type NopInvalidator struct{}

func (NopInvalidator) InvalidateProducts(ctx context.Context, reason string, ids ...uuid.UUID) {}
func (NopInvalidator) InvalidateCatalog(ctx context.Context, reason string)                   {}
