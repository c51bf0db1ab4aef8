package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/datamoat/moat/pkg/pipeline"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(rdb, time.Minute), mr
}

func TestKeyDerivation(t *testing.T) {
	k1 := Key("some text", "https://pastebin.com", 1)
	k2 := Key("some text", "https://pastebin.com", 1)
	if k1 != k2 {
		t.Error("identical inputs must derive identical keys")
	}

	if Key("other text", "https://pastebin.com", 1) == k1 {
		t.Error("text must affect the key")
	}
	if Key("some text", "https://github.com", 1) == k1 {
		t.Error("destination must affect the key")
	}
	if Key("some text", "https://pastebin.com", 2) == k1 {
		t.Error("policy revision must affect the key")
	}

	// Field boundaries must not be ambiguous.
	if Key("ab", "c", 1) == Key("a", "bc", 1) {
		t.Error("text/url concatenation is ambiguous")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	d := pipeline.Decision{
		Allowed: false,
		Message: "AWS Access Key detected",
		Stage:   pipeline.StageFast,
		TookMS:  3,
	}
	key := Key("deploy key AKIA...", "https://pastebin.com", 1)

	if _, ok := c.Get(ctx, key); ok {
		t.Fatal("empty cache should miss")
	}

	c.Put(ctx, key, d)

	got, ok := c.Get(ctx, key)
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got.Allowed != d.Allowed || got.Message != d.Message || got.Stage != d.Stage {
		t.Errorf("got %+v, want %+v", got, d)
	}
}

func TestEntryExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	key := Key("text", "url", 1)
	c.Put(ctx, key, pipeline.Decision{Allowed: true, Stage: pipeline.StageFast})

	mr.FastForward(2 * time.Minute)

	if _, ok := c.Get(ctx, key); ok {
		t.Error("entry should expire after the TTL")
	}
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	c, mr := newTestCache(t)

	key := Key("text", "url", 1)
	mr.Set(key, "{not json")

	if _, ok := c.Get(context.Background(), key); ok {
		t.Error("corrupt entry should read as a miss")
	}
}

func TestPing(t *testing.T) {
	c, mr := newTestCache(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	mr.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping should fail after the server is gone")
	}
}
