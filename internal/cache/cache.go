package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/truthlens/internal/model"
)

// KeyPrefix namespaces every key written by TruthLens
const KeyPrefix = "truthlens:v1:"

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Cache defines the interface for caching merged results
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// ContentHash identifies a submission by content type and content
func ContentHash(sub model.Submission) string {
	hash := sha256.Sum256([]byte(string(sub.ContentType) + "\x00" + sub.Content))
	return hex.EncodeToString(hash[:])
}

// ResultKey generates the cache key for a submission's merged result
func ResultKey(sub model.Submission) string {
	return KeyPrefix + ContentHash(sub)
}

// New builds the cache selected by cfg. A disabled cache returns nil, nil.
func New(ctx context.Context, cfg model.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCache(cfg.TTL, 10*time.Minute), nil
	case "layered":
		return NewLayeredCache(cfg.TTL, cfg.Dir), nil
	case "disk":
		return NewDiskCache(cfg.Dir, cfg.TTL), nil
	case "redis":
		rc, err := NewRedisCache(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		// a short local tier spares a round trip for repeated submissions
		return NewTiered(NewMemoryCache(time.Minute, 5*time.Minute), rc, time.Minute), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: memory, layered, disk, redis)", cfg.Backend)
	}
}
