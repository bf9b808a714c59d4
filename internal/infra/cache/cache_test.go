package cache_test

import (
	"testing"
	"time"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[domain.BudgetReport](5 * time.Minute)
	defer c.Close()

	c.SetIfUnchanged("budget", domain.BudgetReport{14152001: {TeamName: "Brand"}}, c.Generation())
	val, ok := c.Get("budget")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val[14152001].TeamName != "Brand" {
		t.Errorf("expected team Brand, got %q", val[14152001].TeamName)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.SetIfUnchanged("key1", "value1", c.Generation())
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.SetIfUnchanged("key1", "value1", c.Generation())
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_SetIfUnchanged_SkipsAfterDelete(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	gen := c.Generation()
	c.Delete("budget")

	if c.SetIfUnchanged("budget", 1, gen) {
		t.Fatal("expected value computed before a delete to be rejected")
	}
	if _, ok := c.Get("budget"); ok {
		t.Fatal("expected no entry after rejected set")
	}

	if !c.SetIfUnchanged("budget", 2, c.Generation()) {
		t.Fatal("expected set with current generation to succeed")
	}
	if v, _ := c.Get("budget"); v != 2 {
		t.Errorf("expected 2, got %d", v)
	}
}

func TestCache_ZeroTTLDisables(t *testing.T) {
	c := cache.New[string](0)
	defer c.Close()

	c.SetIfUnchanged("key1", "value1", c.Generation())
	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected no caching with zero ttl")
	}
}
