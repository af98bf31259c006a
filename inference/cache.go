package inference

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of models whose metadata and config are kept.
const DefaultCacheSize = 16

// CachedBackend memoizes model metadata and config lookups of another
// backend. Liveness, listing and inference always go to the server.
type CachedBackend struct {
	Backend

	metadata *lru.Cache[string, *ModelMetadata]
	configs  *lru.Cache[string, *ModelConfig]
}

// NewCachedBackend wraps next with LRU caches holding up to size models.
func NewCachedBackend(next Backend, size int) (*CachedBackend, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	metadata, err := lru.New[string, *ModelMetadata](size)
	if err != nil {
		return nil, err
	}
	configs, err := lru.New[string, *ModelConfig](size)
	if err != nil {
		return nil, err
	}
	return &CachedBackend{Backend: next, metadata: metadata, configs: configs}, nil
}

// ModelMetadata returns cached metadata, fetching it on a miss. Errors are
// not cached.
func (c *CachedBackend) ModelMetadata(ctx context.Context, modelName string) (*ModelMetadata, error) {
	if meta, ok := c.metadata.Get(modelName); ok {
		return meta, nil
	}
	meta, err := c.Backend.ModelMetadata(ctx, modelName)
	if err != nil {
		return nil, err
	}
	c.metadata.Add(modelName, meta)
	return meta, nil
}

// ModelConfig returns the cached config, fetching it on a miss.
func (c *CachedBackend) ModelConfig(ctx context.Context, modelName string) (*ModelConfig, error) {
	if cfg, ok := c.configs.Get(modelName); ok {
		return cfg, nil
	}
	cfg, err := c.Backend.ModelConfig(ctx, modelName)
	if err != nil {
		return nil, err
	}
	c.configs.Add(modelName, cfg)
	return cfg, nil
}

// Invalidate drops cached entries for modelName.
func (c *CachedBackend) Invalidate(modelName string) {
	c.metadata.Remove(modelName)
	c.configs.Remove(modelName)
}
