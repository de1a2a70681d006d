package l2

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"matrixsql/errors"
)

// DefaultRedisPrefix is used when RedisConfig.Prefix is empty.
const DefaultRedisPrefix = "matrixsql:l2:"

// redisClient captures the subset of go-redis commands the region relies on.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// RedisConfig describes how the redis region connects and names its keys.
type RedisConfig struct {
	// Client is used as is when set; otherwise a client is created from Addr.
	Client   redis.UniversalClient
	Addr     string
	Username string
	Password string
	DB       int
	// Prefix is prepended to every key, default "matrixsql:l2:".
	Prefix string
	// TTL of stored states, zero keeps them until evicted.
	TTL time.Duration
	// ScanCount is the SCAN batch hint used by EvictPrefix, default 100.
	ScanCount int64
}

// RedisRegion is a Region backed by redis string keys.
type RedisRegion struct {
	client    redisClient
	ownClient bool
	prefix    string
	ttl       time.Duration
	scanCount int64
}

// NewRedisRegion constructs a redis region.
func NewRedisRegion(cfg RedisConfig) (*RedisRegion, error) {
	var (
		c   redisClient
		own bool
	)
	switch {
	case cfg.Client != nil:
		c = cfg.Client
	case cfg.Addr != "":
		c = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		own = true
	default:
		return nil, errors.NewError(errors.ErrCodeConfiguration, "l2: redis region requires Client or Addr")
	}
	return newRedisRegion(c, own, cfg), nil
}

func newRedisRegion(c redisClient, own bool, cfg RedisConfig) *RedisRegion {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultRedisPrefix
	}
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = 100
	}
	return &RedisRegion{
		client:    c,
		ownClient: own,
		prefix:    cfg.Prefix,
		ttl:       cfg.TTL,
		scanCount: cfg.ScanCount,
	}
}

// Prefix returns the key prefix applied to every entry.
func (r *RedisRegion) Prefix() string { return r.prefix }

func (r *RedisRegion) Get(ctx context.Context, key string) ([]byte, bool, error) {
	state, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if stdErrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WrapError(err, errors.ErrCodeCache, "l2: redis get")
	}
	return state, true, nil
}

func (r *RedisRegion) Put(ctx context.Context, key string, state []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, state, r.ttl).Err(); err != nil {
		return errors.WrapError(err, errors.ErrCodeCache, "l2: redis set")
	}
	return nil
}

func (r *RedisRegion) Evict(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return errors.WrapError(err, errors.ErrCodeCache, "l2: redis del")
	}
	return nil
}

// EvictPrefix walks matching keys with SCAN instead of KEYS to avoid blocking the server.
func (r *RedisRegion) EvictPrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+prefix+"*", r.scanCount).Result()
		if err != nil {
			return errors.WrapError(err, errors.ErrCodeCache, "l2: redis scan")
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return errors.WrapError(err, errors.ErrCodeCache, "l2: redis del")
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close releases the client when the region created it.
func (r *RedisRegion) Close() error {
	if !r.ownClient {
		return nil
	}
	return r.client.Close()
}
