package fmi

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
)

// ResolveFunc produces the descriptor for a cache key. The returned cleanup
// releases whatever the resolution allocated and may be nil.
type ResolveFunc func(ctx context.Context, path string) (*Descriptor, func() error, error)

// Cache holds the descriptors of one run, keyed by absolute binary path.
// Multiple slave instances referencing the same binary share one entry, and
// each binary is resolved at most once. It is safe for concurrent use.
type Cache struct {
	resolve ResolveFunc

	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
}

type cacheEntry struct {
	ready   chan struct{}
	desc    *Descriptor
	cleanup func() error
	err     error
}

// NewCache creates an empty cache. A nil resolve falls back to OpenArchive.
func NewCache(resolve ResolveFunc) *Cache {
	if resolve == nil {
		resolve = OpenArchive
	}
	return &Cache{
		resolve: resolve,
		entries: make(map[string]*cacheEntry),
	}
}

// Key normalises a path into a cache key. Addresses with a scheme such as
// builtin:gain are kept verbatim.
func Key(path string) string {
	if i := strings.Index(path, ":"); i > 1 && !strings.ContainsAny(path[:i], `/\`) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Get returns the descriptor for path, resolving it on first use. A failed
// resolution is cached as well and returned to every later caller.
func (c *Cache) Get(ctx context.Context, path string) (*Descriptor, error) {
	key := Key(path)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		select {
		case <-e.ready:
			return e.desc, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e := &cacheEntry{ready: make(chan struct{})}
	c.entries[key] = e
	c.order = append(c.order, key)
	c.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Resolving slave descriptor.", "key", key)
	e.desc, e.cleanup, e.err = c.resolve(ctx, key)
	if e.err == nil && e.desc != nil && e.desc.byName == nil {
		e.desc.index()
	}
	close(e.ready)
	return e.desc, e.err
}

// Peek returns the descriptor for path only if it has already been resolved
// successfully. It never triggers a resolution.
func (c *Cache) Peek(path string) (*Descriptor, bool) {
	c.mu.Lock()
	e, ok := c.entries[Key(path)]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case <-e.ready:
		return e.desc, e.err == nil && e.desc != nil
	default:
		return nil, false
	}
}

// Len returns the number of distinct binaries seen by the cache.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close releases every resolved entry in reverse resolution order.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for i := len(c.order) - 1; i >= 0; i-- {
		e := c.entries[c.order[i]]
		<-e.ready
		if e.cleanup != nil {
			if err := e.cleanup(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	c.entries = make(map[string]*cacheEntry)
	c.order = nil
	return errors.Join(errs...)
}
