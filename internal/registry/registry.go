package registry

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mwsanalytics/posts-backend/internal/tablecache"
)

// UnknownTableError reports a table name with no registered cache.
type UnknownTableError struct {
	Name string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("table %q is not configured", e.Name)
}

// Registry maps table names to their caches. It is safe for concurrent use;
// a Resolve never observes a partially registered table.
type Registry struct {
	log logrus.FieldLogger

	mu     sync.RWMutex
	tables map[string]*tablecache.Cache
}

// New creates an empty registry.
func New(log logrus.FieldLogger) *Registry {
	return &Registry{
		log:    log.WithField("component", "registry"),
		tables: make(map[string]*tablecache.Cache),
	}
}

// Register adds a cache under name, replacing any cache registered before.
// It reports whether an existing table was replaced.
func (r *Registry) Register(name string, cache *tablecache.Cache) bool {
	r.mu.Lock()
	_, replaced := r.tables[name]
	r.tables[name] = cache
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"table":     name,
		"datasheet": cache.Datasheet().ID,
		"variant":   cache.Variant().Name(),
		"replaced":  replaced,
	}).Info("Registered table")

	return replaced
}

// Resolve returns the cache registered under name.
func (r *Registry) Resolve(name string) (*tablecache.Cache, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cache, ok := r.tables[name]
	if !ok {
		return nil, &UnknownTableError{Name: name}
	}

	return cache, nil
}

// Unregister removes a table. It reports whether the table existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	cache, ok := r.tables[name]
	delete(r.tables, name)
	r.mu.Unlock()

	if !ok {
		return false
	}

	cache.Release()

	r.log.WithField("table", name).Info("Unregistered table")

	return true
}

// Names returns the registered table names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Caches returns the registered caches ordered by table name.
func (r *Registry) Caches() []*tablecache.Cache {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caches := make([]*tablecache.Cache, 0, len(r.tables))
	for _, cache := range r.tables {
		caches = append(caches, cache)
	}

	slices.SortFunc(caches, func(a, b *tablecache.Cache) int {
		return cmp.Compare(a.Name(), b.Name())
	})

	return caches
}
