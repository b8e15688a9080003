package client

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/afero"

	"github.com/kfreiman/docbridge/internal/converter"
	"github.com/kfreiman/docbridge/internal/protocol"
	"github.com/kfreiman/docbridge/internal/storage"
)

// Cache holds successful results keyed by request and input content
type Cache struct {
	mu      sync.RWMutex
	entries map[string]protocol.Result
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]protocol.Result)}
}

// Get returns the cached result for key
func (c *Cache) Get(key string) (protocol.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key]
	return r, ok
}

// Put stores r under key. Failed results are never cached.
func (c *Cache) Put(key string, r protocol.Result) {
	if !r.Succeeded() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = r
}

// Len returns the number of cached results
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]protocol.Result)
}

// CacheKey derives a key from the variant, its arguments and the SHA-256
// of the input content
func CacheKey(variant string, args []string, content []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00", variant)
	for _, a := range args {
		fmt.Fprintf(h, "%s\x00", a)
	}
	h.Write([]byte(storage.ContentHash(content)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// CachedInvoker serves repeated requests for unchanged inputs from a Cache.
// URL inputs always go to the wrapped Invoker.
type CachedInvoker struct {
	next   Invoker
	cache  *Cache
	fs     afero.Fs
	logger *slog.Logger
}

// NewCachedInvoker wraps next with cache
func NewCachedInvoker(next Invoker, cache *Cache) *CachedInvoker {
	return &CachedInvoker{
		next:   next,
		cache:  cache,
		fs:     afero.NewOsFs(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithFs sets the filesystem inputs are hashed from
func (c *CachedInvoker) WithFs(fs afero.Fs) *CachedInvoker {
	c.fs = fs
	return c
}

// WithLogger sets a custom logger
func (c *CachedInvoker) WithLogger(logger *slog.Logger) *CachedInvoker {
	c.logger = logger
	return c
}

// Run implements Invoker
func (c *CachedInvoker) Run(ctx context.Context, variant string, args ...string) (*protocol.Result, error) {
	if len(args) == 0 || converter.IsURL(args[0]) {
		return c.next.Run(ctx, variant, args...)
	}
	content, err := afero.ReadFile(c.fs, args[0])
	if err != nil {
		// Let the bridge report the missing input
		return c.next.Run(ctx, variant, args...)
	}

	key := CacheKey(variant, args, content)
	if cached, ok := c.cache.Get(key); ok && c.artifactPresent(cached) {
		c.logger.DebugContext(ctx, "bridge result served from cache", "variant", variant, "input", args[0])
		return &cached, nil
	}

	result, err := c.next.Run(ctx, variant, args...)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, *result)
	return result, nil
}

func (c *CachedInvoker) artifactPresent(r protocol.Result) bool {
	if r.Output == "" {
		return true
	}
	_, err := c.fs.Stat(r.Output)
	return err == nil
}
