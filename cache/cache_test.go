package cache

import (
	"testing"
	"time"

	"go.aimuz.me/clearsight/internal/types"
)

func TestCacheSetGet(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	key := GenerateKey("simplify", "hello", "simple", "English")
	if _, ok := c.Get(key); ok {
		t.Fatal("Get() on empty cache should miss")
	}

	want := &Entry{Text: "hi", Usage: types.Usage{TotalTokens: 3}, CreatedAt: time.Now()}
	if err := c.Set(key, want, DefaultTTL); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Get() should hit after Set")
	}
	if got.Text != "hi" || got.Usage.TotalTokens != 3 {
		t.Errorf("Get() = %+v", got)
	}
}

func TestCacheOnDisk(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Set("k", &Entry{Text: "persisted"}, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	c, err = New(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer c.Close()
	if e, ok := c.Get("k"); !ok || e.Text != "persisted" {
		t.Errorf("Get() after reopen = %+v, %v", e, ok)
	}
}

func TestGenerateKey(t *testing.T) {
	if GenerateKey("a", "bc") == GenerateKey("ab", "c") {
		t.Error("part boundaries must affect the key")
	}
	if GenerateKey("x", "y") != GenerateKey("x", "y") {
		t.Error("key must be deterministic")
	}
	if got := len(GenerateKey("x")); got != 64 {
		t.Errorf("key length = %d, want 64", got)
	}
}
