package dex

import (
	"context"
	"math/rand"
	"strconv"
	"sync"

	"github.com/creature-duel-backend/internal/types"
	"github.com/creature-duel-backend/pkg/logger"
)

// Cache is a process-wide, append-only record cache keyed by creature id.
// Records are immutable, so concurrent writers racing on the same key can
// overwrite each other freely. Never evicts; lives for the process lifetime.
type Cache struct {
	mu      sync.RWMutex
	records map[int]*types.CreatureRecord
}

// NewCache creates an empty record cache
func NewCache() *Cache {
	return &Cache{
		records: make(map[int]*types.CreatureRecord),
	}
}

// Get returns the cached record for id, if present
func (c *Cache) Get(id int) (*types.CreatureRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	record, ok := c.records[id]
	return record, ok
}

// Put inserts a record under its id
func (c *Cache) Put(record *types.CreatureRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records[record.ID] = record
}

// Len returns the number of cached records
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.records)
}

// CachedClient wraps a Lookup with the shared cache.
// Hits never touch the network; misses fall through and populate.
type CachedClient struct {
	lookup Lookup
	cache  *Cache
}

// NewCachedClient creates a caching wrapper around lookup
func NewCachedClient(lookup Lookup, cache *Cache) *CachedClient {
	return &CachedClient{
		lookup: lookup,
		cache:  cache,
	}
}

// Creature fetches a record, serving from the cache when possible
func (c *CachedClient) Creature(ctx context.Context, id int) (*types.CreatureRecord, error) {
	if record, ok := c.cache.Get(id); ok {
		return record, nil
	}

	record, err := c.lookup.Creature(ctx, id)
	if err != nil {
		return nil, err
	}

	c.cache.Put(record)
	return record, nil
}

// MaxID returns the largest valid creature id
func (c *CachedClient) MaxID() int {
	return c.lookup.MaxID()
}

// Prefetch warms the cache with up to n random records.
// Best effort: fetch failures are logged and dropped, a cache miss at
// game time always falls through to a direct fetch anyway.
func (c *CachedClient) Prefetch(ctx context.Context, n int, log *logger.Logger) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := 1 + rand.Intn(c.MaxID())
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := c.Creature(ctx, id); err != nil {
				log.Debug("prefetch miss", logger.F("id", strconv.Itoa(id)), logger.F("error", err.Error()))
			}
		}(id)
	}
	wg.Wait()

	log.Info("prefetch complete", logger.F("cached", strconv.Itoa(c.cache.Len())))
}
