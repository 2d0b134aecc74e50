package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/praetorhq/praetor"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	d := &praetor.Decision{Allowed: true, Effect: praetor.EffectAllow}

	// Miss
	_, ok := c.Get(ctx, "t1:permission:u1:d1:read:")
	if ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	c.Set(ctx, "t1:permission:u1:d1:read:", d, time.Minute)
	got, ok := c.Get(ctx, "t1:permission:u1:d1:read:")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !got.Allowed {
		t.Fatal("expected allowed")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "t1:permission:u1:d1:read:", &praetor.Decision{Allowed: true}, 1*time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "t1:permission:u1:d1:read:")
	if ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheTTLFallback(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(1 * time.Millisecond))

	// A non-positive TTL falls back to the cache default.
	c.Set(ctx, "t1:permission:u1:d1:read:", &praetor.Decision{Allowed: true}, 0)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get(ctx, "t1:permission:u1:d1:read:"); ok {
		t.Fatal("expected expiry via fallback TTL")
	}

	// An explicit TTL overrides the default.
	c.Set(ctx, "t1:permission:u1:d2:read:", &praetor.Decision{Allowed: true}, time.Minute)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get(ctx, "t1:permission:u1:d2:read:"); !ok {
		t.Fatal("expected per-call TTL to outlive the default")
	}
}

func TestMemoryCacheInvalidateTenant(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "t1:permission:u1:d1:read:", &praetor.Decision{Allowed: true}, time.Minute)
	c.Set(ctx, "t1:policy:u2:d2:write:", &praetor.Decision{Allowed: false}, time.Minute)
	c.Set(ctx, "t2:permission:u1:d1:read:", &praetor.Decision{Allowed: true}, time.Minute)

	c.InvalidateTenant(ctx, "t1")

	if _, ok := c.Get(ctx, "t1:permission:u1:d1:read:"); ok {
		t.Fatal("t1 permission key should be invalidated")
	}
	if _, ok := c.Get(ctx, "t1:policy:u2:d2:write:"); ok {
		t.Fatal("t1 policy key should be invalidated")
	}
	if _, ok := c.Get(ctx, "t2:permission:u1:d1:read:"); !ok {
		t.Fatal("t2 key should still be cached")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("t1:permission:u1:d%d:read:", i)
		c.Set(ctx, key, &praetor.Decision{Allowed: true}, time.Minute)
	}

	if n := c.Len(); n > 2 {
		t.Fatalf("expected max 2 entries, got %d", n)
	}
}
