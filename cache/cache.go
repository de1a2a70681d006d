// Package cache 提供进程内泛型 LRU + TTL 缓存。
//
// 二级缓存的内存区域（data/orm/l2.MemoryRegion）以 Cache[string, []byte]
// 保存实体的拆解状态；容量超限时驱逐最久未访问的条目，TTL 以最近访问时间计算。
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// Cache 并发安全的泛型缓存
//
//	states := cache.New[string, []byte](cache.Config{
//	    Name:    "orders",
//	    MaxSize: 1000,
//	    TTL:     5 * time.Minute,
//	})
//	states.Set("orders:42", state)
//	if state, ok := states.Get("orders:42"); ok {
//	    ...
//	}
type Cache[K comparable, V any] struct {
	name   string
	config Config

	items   map[K]*cacheEntry[K, V]
	lruList *list.List // 最近访问的在前

	mu    sync.Mutex
	stats CacheStats
	now   func() time.Time
}

type cacheEntry[K comparable, V any] struct {
	key        K
	value      V
	accessedAt time.Time
	lruElement *list.Element
}

// Config 缓存配置
type Config struct {
	// Name 缓存名称，用于日志和统计
	Name string

	// MaxSize 最大条目数，0 表示不限制
	MaxSize int

	// TTL 基于最近访问时间的过期时长，0 表示永不过期
	TTL time.Duration

	// OnEvict 条目被删除、驱逐或过期时回调，持锁调用，不可重入缓存
	OnEvict func(key, value any)
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Hits      int64 // 命中次数
	Misses    int64 // 未命中次数
	Evictions int64 // 容量驱逐次数
	Expires   int64 // 过期次数
	Size      int   // 当前条目数
}

// New 创建缓存
func New[K comparable, V any](config Config) *Cache[K, V] {
	if config.Name == "" {
		config.Name = "unnamed"
	}
	return &Cache[K, V]{
		name:    config.Name,
		config:  config,
		items:   make(map[K]*cacheEntry[K, V]),
		lruList: list.New(),
		now:     time.Now,
	}
}

// Name 缓存名称
func (c *Cache[K, V]) Name() string { return c.name }

// Get 获取未过期的缓存值，命中时刷新访问时间与 LRU 位置
func (c *Cache[K, V]) Get(key K) (value V, found bool) {
	// Get 会修改 LRU 链表与统计，因此同样持互斥锁
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		c.stats.Misses++
		return value, false
	}
	if c.isExpired(entry) {
		c.removeEntryUnsafe(entry)
		c.stats.Misses++
		c.stats.Expires++
		return value, false
	}

	entry.accessedAt = c.now()
	c.lruList.MoveToFront(entry.lruElement)
	c.stats.Hits++
	return entry.value, true
}

// Set 写入或覆盖缓存值
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, exists := c.items[key]; exists {
		entry.value = value
		entry.accessedAt = now
		c.lruList.MoveToFront(entry.lruElement)
		return
	}

	if c.config.MaxSize > 0 && len(c.items) >= c.config.MaxSize {
		c.evictOldestUnsafe()
	}

	entry := &cacheEntry[K, V]{key: key, value: value, accessedAt: now}
	entry.lruElement = c.lruList.PushFront(entry)
	c.items[key] = entry
	c.stats.Size = len(c.items)
}

// Delete 删除条目，返回条目是否存在
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		return false
	}
	c.removeEntryUnsafe(entry)
	return true
}

// DeleteFunc 删除所有 match 返回 true 的条目，返回删除数量
func (c *Cache[K, V]) DeleteFunc(match func(key K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.items {
		if match(key) {
			c.removeEntryUnsafe(entry)
			removed++
		}
	}
	return removed
}

// Clear 清空缓存
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.OnEvict != nil {
		for _, entry := range c.items {
			c.config.OnEvict(entry.key, entry.value)
		}
	}
	c.items = make(map[K]*cacheEntry[K, V])
	c.lruList = list.New()
	c.stats.Size = 0
}

// CleanExpired 清理过期条目，返回清理数量
func (c *Cache[K, V]) CleanExpired() int {
	if c.config.TTL <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cleaned := 0
	for _, entry := range c.items {
		if c.isExpired(entry) {
			c.removeEntryUnsafe(entry)
			cleaned++
		}
	}
	c.stats.Expires += int64(cleaned)
	return cleaned
}

// Stats 返回统计信息副本
func (c *Cache[K, V]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.items)
	return stats
}

// Size 当前条目数
func (c *Cache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// HitRate 命中率，尚无访问时为 0
func (c *Cache[K, V]) HitRate() float64 {
	stats := c.Stats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0
	}
	return float64(stats.Hits) / float64(total)
}

func (c *Cache[K, V]) isExpired(entry *cacheEntry[K, V]) bool {
	if c.config.TTL <= 0 {
		return false
	}
	return c.now().Sub(entry.accessedAt) >= c.config.TTL
}

func (c *Cache[K, V]) evictOldestUnsafe() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}
	c.removeEntryUnsafe(oldest.Value.(*cacheEntry[K, V]))
	c.stats.Evictions++
}

func (c *Cache[K, V]) removeEntryUnsafe(entry *cacheEntry[K, V]) {
	if c.config.OnEvict != nil {
		c.config.OnEvict(entry.key, entry.value)
	}
	if entry.lruElement != nil {
		c.lruList.Remove(entry.lruElement)
	}
	delete(c.items, entry.key)
	c.stats.Size = len(c.items)
}

// String 缓存概要
func (c *Cache[K, V]) String() string {
	stats := c.Stats()
	return fmt.Sprintf("Cache[%s]: size=%d/%d, hits=%d, misses=%d, hit_rate=%.2f%%, evictions=%d, expires=%d",
		c.name,
		stats.Size,
		c.config.MaxSize,
		stats.Hits,
		stats.Misses,
		c.HitRate()*100,
		stats.Evictions,
		stats.Expires,
	)
}
