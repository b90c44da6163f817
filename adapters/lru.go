package adapters

import lru "github.com/hashicorp/golang-lru/v2"

// LRUCache adapts hashicorp/golang-lru into the engine's HotCache
// contract. It is exactly the bounded most-recently-used mapping the spec
// calls for, so no hand-rolled LRU is written here.
type LRUCache[K comparable, V any] struct {
	c *lru.Cache[K, V]
}

// NewLRUCache returns a HotCache with room for size entries. A non-nil
// onEvict is invoked (key, value) whenever the cache evicts an entry to
// make room for a new one.
func NewLRUCache[K comparable, V any](size int, onEvict func(key K, value V)) (*LRUCache[K, V], error) {
	var (
		c   *lru.Cache[K, V]
		err error
	)
	if onEvict != nil {
		c, err = lru.NewWithEvict[K, V](size, onEvict)
	} else {
		c, err = lru.New[K, V](size)
	}
	if err != nil {
		return nil, err
	}
	return &LRUCache[K, V]{c: c}, nil
}

func (l *LRUCache[K, V]) Get(key K) (V, bool) {
	return l.c.Get(key)
}

func (l *LRUCache[K, V]) Add(key K, value V) {
	l.c.Add(key, value)
}

func (l *LRUCache[K, V]) Remove(key K) {
	l.c.Remove(key)
}

func (l *LRUCache[K, V]) Purge() {
	l.c.Purge()
}
