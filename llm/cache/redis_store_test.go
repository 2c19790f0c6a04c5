package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/types"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	entry := &Entry{
		Timestamp:   float64(time.Now().Unix()),
		Fingerprint: "abc",
		Prompt:      "p",
		Messages:    []types.Message{types.NewAssistantMessage("r")},
	}
	if err := store.Write(ctx, "abc", entry); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read(ctx, "abc")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Prompt != "p" || len(got.Messages) != 1 {
		t.Errorf("entry = %+v", got)
	}
}

func TestRedisStoreNotFound(t *testing.T) {
	store, _ := newRedisStore(t)

	if _, err := store.Read(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	entry := &Entry{Fingerprint: "k", Messages: []types.Message{types.NewAssistantMessage("r")}}
	if err := store.Write(ctx, "k", entry); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Read(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err after delete = %v, want ErrNotFound", err)
	}
}

func TestRedisStoreNativeExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client, time.Second)
	ctx := context.Background()

	entry := &Entry{Fingerprint: "k", Messages: []types.Message{types.NewAssistantMessage("r")}}
	if err := store.Write(ctx, "k", entry); err != nil {
		t.Fatalf("Write: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, err := store.Read(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err after redis expiry = %v, want ErrNotFound", err)
	}
}

func TestResponseCacheOverRedis(t *testing.T) {
	store, _ := newRedisStore(t)
	c := NewResponseCache(store, time.Hour, zap.NewNop())
	ctx := context.Background()

	msgs := []types.Message{types.NewAssistantMessage("4")}
	c.Set(ctx, "2+2?", cacheOpts(), msgs)

	got, ok := c.Get(ctx, "2+2?", cacheOpts())
	if !ok || got[0].TextContent() != "4" {
		t.Errorf("got %#v, want cached answer", got)
	}
}
