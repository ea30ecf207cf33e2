package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Cache 统一缓存接口；value 统一以 string 存储（JSON 编解码在业务侧处理）。
// SetEX 设置带过期；Del 删除多个 key。

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	SetEX(ctx context.Context, key, val string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// PrefixDeleter 可选接口：按前缀批量失效（租户级/用户级缓存清理依赖它）。
// 不放入 Cache 基础接口，避免所有实现都必须支持。
type PrefixDeleter interface {
	DelPrefix(ctx context.Context, prefix string) error
}

// ===== SimpleCache (L1 进程内) =====

type Item struct {
	Val interface{}
	Exp time.Time
}

// SimpleCache 线程安全、带 TTL 的进程级缓存
type SimpleCache struct {
	mu   sync.RWMutex
	data map[string]Item
	ttl  time.Duration // 默认 TTL，可被 SetWithTTL 覆盖
}

func New(ttl time.Duration) *SimpleCache { return &SimpleCache{data: make(map[string]Item), ttl: ttl} }

func (c *SimpleCache) getRaw(key string) (interface{}, bool) {
	c.mu.RLock()
	it, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !it.Exp.IsZero() && time.Now().After(it.Exp) {
		return nil, false
	}
	return it.Val, true
}
func (c *SimpleCache) setRaw(key string, val interface{}, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.data[key] = Item{Val: val, Exp: exp}
	c.mu.Unlock()
}
func (c *SimpleCache) delRaw(keys ...string) {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.mu.Unlock()
}
func (c *SimpleCache) Flush() { c.mu.Lock(); c.data = make(map[string]Item); c.mu.Unlock() }
func (c *SimpleCache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	return keys
}

func (c *SimpleCache) Get(key string) (interface{}, bool) { return c.getRaw(key) }
func (c *SimpleCache) Set(key string, val interface{}) {
	c.setRaw(key, val, c.ttl)
}
func (c *SimpleCache) SetWithTTL(key string, val interface{}, ttl time.Duration) {
	c.setRaw(key, val, ttl)
}
func (c *SimpleCache) Del(keys ...string) {
	c.delRaw(keys...)
}

// ===== simpleAdapter: 将 SimpleCache 适配为 Cache 接口 =====

type simpleAdapter struct{ c *SimpleCache }

func NewSimpleAdapter(c *SimpleCache) Cache { return &simpleAdapter{c: c} }

func (a *simpleAdapter) Get(_ context.Context, key string) (string, error) {
	if v, ok := a.c.getRaw(key); ok {
		if s, ok2 := v.(string); ok2 {
			return s, nil
		}
	}
	return "", nil
}
func (a *simpleAdapter) SetEX(_ context.Context, key, val string, ttl time.Duration) error {
	a.c.setRaw(key, val, ttl)
	return nil
}
func (a *simpleAdapter) Del(_ context.Context, keys ...string) error {
	a.c.delRaw(keys...)
	return nil
}

// DelPrefix 遍历全部 key 匹配前缀；L1 容量小，线性扫描可接受
func (a *simpleAdapter) DelPrefix(_ context.Context, prefix string) error {
	for _, k := range a.c.Keys() {
		if strings.HasPrefix(k, prefix) {
			a.c.delRaw(k)
		}
	}
	return nil
}

// RemainingTTL 与 RedisAdapter 对齐，便于 LayeredCache 透传剩余 TTL
func (a *simpleAdapter) RemainingTTL(_ context.Context, key string) (time.Duration, bool) {
	a.c.mu.RLock()
	it, ok := a.c.data[key]
	a.c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if it.Exp.IsZero() {
		return 0, false
	}
	if time.Now().After(it.Exp) {
		return 0, false
	}
	return time.Until(it.Exp), true
}
