// Package l2 提供 ORM 二级缓存区域。
//
// 区域只保存实体的拆解状态（[]byte），由运行时负责拆解与重组，
// 因此同一份状态可以放在进程内存或 Redis 中。
package l2

import (
	"context"
	"strings"
	"time"

	"matrixsql/cache"
)

// Region 二级缓存区域
type Region interface {
	// Get 读取状态，未命中时 ok=false
	Get(ctx context.Context, key string) (state []byte, ok bool, err error)
	Put(ctx context.Context, key string, state []byte) error
	Evict(ctx context.Context, key string) error
	// EvictPrefix 删除所有以 prefix 开头的条目，用于按表失效
	EvictPrefix(ctx context.Context, prefix string) error
}

// MemoryRegion 基于进程内 LRU + TTL 缓存的区域
type MemoryRegion struct {
	states *cache.Cache[string, []byte]
}

// NewMemoryRegion 创建内存区域，maxSize 为 0 时不限容量，ttl 为 0 时永不过期
func NewMemoryRegion(name string, maxSize int, ttl time.Duration) *MemoryRegion {
	return &MemoryRegion{
		states: cache.New[string, []byte](cache.Config{
			Name:    name,
			MaxSize: maxSize,
			TTL:     ttl,
		}),
	}
}

func (r *MemoryRegion) Get(_ context.Context, key string) ([]byte, bool, error) {
	state, ok := r.states.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), state...), true, nil
}

func (r *MemoryRegion) Put(_ context.Context, key string, state []byte) error {
	r.states.Set(key, append([]byte(nil), state...))
	return nil
}

func (r *MemoryRegion) Evict(_ context.Context, key string) error {
	r.states.Delete(key)
	return nil
}

func (r *MemoryRegion) EvictPrefix(_ context.Context, prefix string) error {
	r.states.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, prefix) })
	return nil
}

// Stats 返回底层缓存统计
func (r *MemoryRegion) Stats() cache.CacheStats { return r.states.Stats() }
