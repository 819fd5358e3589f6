package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"solana-sniper/internal/domain"
)

const keyPrefix = "sniper:verdict:"

// Redis shares verdicts between sniper processes. Entries expire server-side
// via SET EX. Redis failures degrade to cache misses.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{rdb: rdb, ttl: ttl, logger: logger.Named("verdict_cache")}
}

func (r *Redis) Get(ctx context.Context, assetID string) (*domain.SafetyVerdict, bool) {
	b, err := r.rdb.Get(ctx, keyPrefix+assetID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("redis get failed", zap.String("asset", assetID), zap.Error(err))
		}
		return nil, false
	}

	var v domain.SafetyVerdict
	if err := json.Unmarshal(b, &v); err != nil {
		r.logger.Warn("corrupt cached verdict", zap.String("asset", assetID), zap.Error(err))
		return nil, false
	}
	return &v, true
}

func (r *Redis) Put(ctx context.Context, verdict *domain.SafetyVerdict) {
	b, err := json.Marshal(verdict)
	if err != nil {
		r.logger.Warn("encode verdict", zap.String("asset", verdict.AssetID), zap.Error(err))
		return
	}
	if err := r.rdb.Set(ctx, keyPrefix+verdict.AssetID, b, r.ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", zap.String("asset", verdict.AssetID), zap.Error(err))
	}
}

var _ Cache = (*Redis)(nil)
