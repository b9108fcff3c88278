package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/truthlens/internal/model"
)

func TestResultKey(t *testing.T) {
	text := model.Submission{Content: "https://x.example", ContentType: model.ContentTypeText}
	url := model.Submission{Content: "https://x.example", ContentType: model.ContentTypeURL}

	if !strings.HasPrefix(ResultKey(text), KeyPrefix) {
		t.Errorf("Expected key prefix %s, got %s", KeyPrefix, ResultKey(text))
	}
	if ResultKey(text) == ResultKey(url) {
		t.Error("Expected content type to be part of the key")
	}
	if ResultKey(text) != ResultKey(text) {
		t.Error("Expected stable keys")
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Expected miss, got %v", err)
	}

	value := []byte("v1")
	if err := c.Set(ctx, "k", value, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'x'

	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Errorf("Expected stored copy v1, got %q (%v)", got, err)
	}

	_ = c.Delete(ctx, "k")
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("Expected miss after delete, got %v", err)
	}
}

func TestDiskCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	key := ResultKey(model.Submission{Content: "a", ContentType: model.ContentTypeText})
	if err := c.Set(ctx, key, []byte(`{"a":1}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, key)
	if err != nil || string(got) != `{"a":1}` {
		t.Fatalf("Unexpected value %q (%v)", got, err)
	}

	temps, _ := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	if len(temps) != 0 {
		t.Errorf("Expected no temp files left behind, got %v", temps)
	}

	if err := c.Set(ctx, "expired", []byte("x"), -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := c.Get(ctx, "expired"); !errors.Is(err, ErrMiss) {
		t.Errorf("Expected expired entry to miss, got %v", err)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := c.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Errorf("Expected miss after clear, got %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Clear must keep the directory: %v", err)
	}
	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete of missing key should succeed: %v", err)
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	if err := os.WriteFile(c.path("bad"), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "bad"); !errors.Is(err, ErrMiss) {
		t.Errorf("Expected corrupt entry to miss, got %v", err)
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	disk := NewDiskCache(dir, time.Minute)
	if err := disk.Set(ctx, "k", []byte("from-disk"), 0); err != nil {
		t.Fatal(err)
	}

	c := NewLayeredCache(time.Minute, dir)
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "from-disk" {
		t.Fatalf("Expected disk hit, got %q (%v)", got, err)
	}

	if _, err := c.front.Get(ctx, "k"); err != nil {
		t.Errorf("Expected value promoted to memory: %v", err)
	}
}

type failingCache struct{ closed bool }

func (f *failingCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, errors.New("down") }
func (f *failingCache) Set(ctx context.Context, key string, v []byte, ttl time.Duration) error {
	return errors.New("down")
}
func (f *failingCache) Delete(ctx context.Context, key string) error { return errors.New("down") }
func (f *failingCache) Clear(ctx context.Context) error              { return errors.New("down") }
func (f *failingCache) Close() error                                 { f.closed = true; return nil }

func TestTiered_BackFailure(t *testing.T) {
	ctx := context.Background()
	back := &failingCache{}
	c := NewTiered(NewMemoryCache(time.Minute, time.Minute), back, time.Minute)

	if err := c.Set(ctx, "k", []byte("v"), 0); err == nil {
		t.Error("Expected back tier error from Set")
	}
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Expected front hit despite back failure, got %q (%v)", got, err)
	}
	if _, err := c.Get(ctx, "other"); err == nil {
		t.Error("Expected miss to surface back error")
	}

	if err := c.Close(); err != nil || !back.closed {
		t.Errorf("Close should reach back tier: %v", err)
	}
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	buf := []byte("abc")
	_ = c.Set(ctx, "k", buf, 0)
	buf[0] = 'x'

	got, _ := c.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value changed with caller buffer: %q", got)
	}
	got[1] = 'y'
	again, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value changed through returned slice: %q", again)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, model.CacheConfig{Enabled: false})
	if err != nil || c != nil {
		t.Errorf("Expected nil cache when disabled, got %v (%v)", c, err)
	}

	c, err = New(ctx, model.CacheConfig{Enabled: true, Backend: "memory", TTL: time.Minute})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("Expected MemoryCache, got %T", c)
	}

	if _, err := New(ctx, model.CacheConfig{Enabled: true, Backend: "tape"}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := NewRedisCache(ctx, RedisOptions{Addr: "127.0.0.1:1"}); err == nil {
		t.Error("Expected error connecting to an unreachable redis")
	}
}
