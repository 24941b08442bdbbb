package cache

import (
	"strconv"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// RouterCache memoises per-chain router instances for the process lifetime.
// Entries are never evicted: router deployments are immutable per chain.
type RouterCache[T any] struct {
	mutex sync.Mutex
	items *gocache.Cache
}

func NewRouterCache[T any]() *RouterCache[T] {
	return &RouterCache[T]{items: gocache.New(gocache.NoExpiration, 0)}
}

func (c *RouterCache[T]) key(chainId int64) string {
	return strconv.FormatInt(chainId, 10)
}

// GetOrCreate returns the cached instance for chainId, building it with create
// on first use. A failed create is not cached.
func (c *RouterCache[T]) GetOrCreate(chainId int64, create func() (T, error)) (T, error) {
	key := c.key(chainId)
	if v, ok := c.items.Get(key); ok {
		return v.(T), nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if v, ok := c.items.Get(key); ok {
		return v.(T), nil
	}

	instance, err := create()
	if err != nil {
		var zero T
		return zero, err
	}
	c.items.Set(key, instance, gocache.NoExpiration)
	return instance, nil
}

func (c *RouterCache[T]) Len() int {
	return c.items.ItemCount()
}
