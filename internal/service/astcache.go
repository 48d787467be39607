package service

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/rulecore/rulecore/internal/dsl"
)

// astCacheEntry is a doubly-linked list node for the program LRU.
type astCacheEntry struct {
	key     uint64
	expr    string
	program *dsl.Program
	prev    *astCacheEntry
	next    *astCacheEntry
}

// astCache bounds the set of parsed DSL programs kept in memory, keyed by
// the hash of the expression source. It caches only the pure parse of an
// expression string, never a per-context decision, so it introduces no
// staleness hazard against rule-set reloads.
type astCache struct {
	mu      sync.Mutex
	entries map[uint64]*astCacheEntry
	head    *astCacheEntry
	tail    *astCacheEntry
	maxSize int
}

func newASTCache(maxSize int) *astCache {
	return &astCache{entries: make(map[uint64]*astCacheEntry, maxSize), maxSize: maxSize}
}

// compile returns a parsed Program for expr, serving it from cache when
// possible and compiling (then caching) on a miss. The second return value
// reports whether the program was already cached, for metrics only.
func (c *astCache) compile(expr string) (*dsl.Program, bool, error) {
	key := xxhash.Sum64String(expr)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.expr == expr {
		c.moveToHeadLocked(e)
		c.mu.Unlock()
		return e.program, true, nil
	}
	c.mu.Unlock()

	prog, err := dsl.Compile(expr)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.evictTailLocked()
	}
	e := &astCacheEntry{key: key, expr: expr, program: prog}
	c.entries[key] = e
	c.pushHeadLocked(e)
	return prog, false, nil
}

func (c *astCache) moveToHeadLocked(e *astCacheEntry) {
	if c.head == e {
		return
	}
	c.unlinkLocked(e)
	c.pushHeadLocked(e)
}

func (c *astCache) pushHeadLocked(e *astCacheEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *astCache) unlinkLocked(e *astCacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (c *astCache) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}
