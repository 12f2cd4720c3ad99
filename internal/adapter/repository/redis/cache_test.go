package redis

import (
	"context"
	"testing"
	"time"
)

func TestCacheSetAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "summary:owner-1", []byte(`{"OwnerID":"owner-1"}`), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := cache.Get(ctx, "summary:owner-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if string(val) != `{"OwnerID":"owner-1"}` {
		t.Fatalf("unexpected cached value %s", val)
	}

	if !mr.Exists("cardledger:cache:summary:owner-1") {
		t.Fatal("expected key to be stored under the cache prefix")
	}
}

func TestCacheGetMissingKey(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)

	val, err := cache.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected miss without error, got %v", err)
	}

	if val != nil {
		t.Fatalf("expected nil value on miss, got %q", val)
	}
}

func TestCacheExpires(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	val, err := cache.Get(ctx, "k")
	if err != nil || val != nil {
		t.Fatalf("expected expired key to miss, got %q err=%v", val, err)
	}
}

func TestCacheDelete(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if mr.Exists("cardledger:cache:k") {
		t.Fatal("expected key to be deleted")
	}
}

func TestCacheGetServerDown(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()

	cache := NewCache(client)
	mr.Close()

	if _, err := cache.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error when redis is unavailable")
	}
}
