package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/indexer"
	"github.com/panoptikon-app/panoptikon/internal/runtime"
)

const defaultResultCacheSize = 64

// TopicResultsInvalidated is published once per Cache eviction pass that
// actually drops at least one entry, carrying the union of evicted
// entries' scopes, so a UI-facing ResultsInvalidated(scope) event has a
// concrete source to subscribe to.
const TopicResultsInvalidated = "query.results_invalidated"

// ResultsInvalidated is the event published on TopicResultsInvalidated.
type ResultsInvalidated struct {
	Scope []string
}

// cacheKey identifies one cached ResultSet by the exact inputs that
// determine its rows: the canonical query text and the requested sort
// order (filters, once internal/coreapi grows a separate faceted-filter
// surface, would be folded in here too; today a query's field/cloud/range
// terms are already part of its text, so no separate component exists
// yet).
type cacheKey struct {
	query string
	sort  string
}

func newCacheKey(query string, sort []SortKey) cacheKey {
	parts := make([]string, len(sort))
	for i, k := range sort {
		parts[i] = fmt.Sprintf("%s:%t", k.Field, k.Descending)
	}

	return cacheKey{query: strings.TrimSpace(query), sort: strings.Join(parts, ",")}
}

// Cache memoizes ResultSets across repeat searches (e.g. re-running the
// same query after switching windows), invalidating entries whose known
// path scope intersects a CatalogMutated event rather than tracking row
// ids directly — a cheap, conservative approximation: any write under a
// path a cached query has already returned evicts that entry, even if the
// particular write wouldn't have changed the row set.
type Cache struct {
	store   *catalog.Store
	planner *Planner
	bus     *runtime.EventBus
	logger  *slog.Logger

	mu      sync.Mutex
	entries *lru.Cache[cacheKey, *cacheEntry]

	unsubscribe func()
}

type cacheEntry struct {
	resultSet *ResultSet
	scope     []string // paths/prefixes this query's rows are known to live under
}

// NewCache creates a Cache bound to store and planner, subscribing to bus
// for TopicCatalogMutated invalidation. bus may be nil (invalidation then
// never happens, which is only appropriate in tests).
func NewCache(store *catalog.Store, planner *Planner, bus *runtime.EventBus, size int, logger *slog.Logger) (*Cache, error) {
	if size <= 0 {
		size = defaultResultCacheSize
	}

	if logger == nil {
		logger = slog.Default()
	}

	entries, err := lru.NewWithEvict[cacheKey, *cacheEntry](size, func(_ cacheKey, e *cacheEntry) {
		e.resultSet.Close()
	})
	if err != nil {
		return nil, err
	}

	c := &Cache{store: store, planner: planner, bus: bus, logger: logger, entries: entries}

	if bus != nil {
		c.unsubscribe = bus.Subscribe(indexer.TopicCatalogMutated, runtime.PriorityNormal, c.onCatalogMutated)
	}

	return c, nil
}

// Search returns a ResultSet for query/sort, reusing a cached one when its
// scope hasn't been invalidated since it was built.
func (c *Cache) Search(ctx context.Context, query string, sort []SortKey) (*ResultSet, error) {
	key := newCacheKey(query, sort)

	c.mu.Lock()
	if entry, ok := c.entries.Get(key); ok {
		c.mu.Unlock()
		return entry.resultSet, nil
	}
	c.mu.Unlock()

	plan, err := c.planner.Plan(query)
	if err != nil {
		return nil, err
	}

	rs, err := NewResultSet(ctx, c.store, plan, sort)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries.Add(key, &cacheEntry{resultSet: rs, scope: scopeOf(query)})
	c.mu.Unlock()

	return rs, nil
}

// scopeOf extracts the path: terms a query names, used as a coarse
// invalidation scope; a query with no path: term is scoped to everything
// (any mutation invalidates it), since its rows could live anywhere.
func scopeOf(query string) []string {
	var scopes []string

	for _, tok := range strings.Fields(query) {
		if rest, ok := strings.CutPrefix(tok, "path:"); ok {
			scopes = append(scopes, rest)
		}
	}

	if len(scopes) == 0 {
		return []string{""} // empty prefix matches every path
	}

	return scopes
}

// onCatalogMutated evicts every cached entry whose scope intersects the
// event's PathScope.
func (c *Cache) onCatalogMutated(_ context.Context, _ string, ev runtime.Event) {
	mutated, ok := ev.(indexer.CatalogMutated)
	if !ok {
		c.invalidateAll()
		return
	}

	paths := mutated.PathScope

	c.mu.Lock()

	var invalidatedScope []string

	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if !ok {
			continue
		}

		if scopeIntersects(entry.scope, paths) {
			c.logger.Debug("query cache: invalidating entry", "query", key.query, "paths", paths)
			c.entries.Remove(key)
			c.planner.Invalidate(key.query)
			invalidatedScope = append(invalidatedScope, entry.scope...)
		}
	}

	c.mu.Unlock()

	if len(invalidatedScope) > 0 && c.bus != nil {
		c.bus.Publish(context.Background(), TopicResultsInvalidated, ResultsInvalidated{Scope: invalidatedScope})
	}
}

func scopeIntersects(scopes, paths []string) bool {
	for _, scope := range scopes {
		if scope == "" {
			return true
		}

		for _, p := range paths {
			if strings.HasPrefix(p, scope) || strings.HasPrefix(scope, p) {
				return true
			}
		}
	}

	return false
}

func (c *Cache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.entries.Keys() {
		c.entries.Remove(key)
	}
}

// Close unsubscribes from the bus and closes every cached ResultSet's
// snapshot.
func (c *Cache) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}

	c.invalidateAll()
}
