package cache

import (
	"context"
	"errors"
	"time"
)

// Tiered puts a fast cache in front of a slower or shared one. Reads fall
// through to back and backfill front; writes go to both. A failing back
// tier degrades to front only for reads.
type Tiered struct {
	front Cache
	back  Cache
	// frontTTL bounds backfilled entries, since their remaining back TTL is unknown
	frontTTL time.Duration
}

// NewTiered layers front over back
func NewTiered(front, back Cache, frontTTL time.Duration) *Tiered {
	return &Tiered{front: front, back: back, frontTTL: frontTTL}
}

// NewLayeredCache is memory over disk under dir
func NewLayeredCache(ttl time.Duration, dir string) *Tiered {
	return NewTiered(NewMemoryCache(ttl, 10*time.Minute), NewDiskCache(dir, ttl), ttl)
}

func (c *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	if v, err := c.front.Get(ctx, key); err == nil {
		return v, nil
	}

	v, err := c.back.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = c.front.Set(ctx, key, v, c.frontTTL)
	return v, nil
}

func (c *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	frontTTL := ttl
	if frontTTL == 0 || (c.frontTTL > 0 && frontTTL > c.frontTTL) {
		frontTTL = c.frontTTL
	}
	return errors.Join(c.front.Set(ctx, key, value, frontTTL), c.back.Set(ctx, key, value, ttl))
}

func (c *Tiered) Delete(ctx context.Context, key string) error {
	return errors.Join(c.front.Delete(ctx, key), c.back.Delete(ctx, key))
}

func (c *Tiered) Clear(ctx context.Context) error {
	return errors.Join(c.front.Clear(ctx), c.back.Clear(ctx))
}

// Close releases the back tier when it holds a connection
func (c *Tiered) Close() error {
	if closer, ok := c.back.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
