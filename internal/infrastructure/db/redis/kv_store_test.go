package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestKVStore_Keys(t *testing.T) {
	s := NewKVStore(nil, "innerpath:")
	got := s.keys([]string{"authToken", "userData"})
	if got[0] != "innerpath:authToken" || got[1] != "innerpath:userData" {
		t.Fatalf("unexpected keys: %v", got)
	}
}

// TestKVStore_RoundTrip runs against a real server when REDIS_ADDR is set.
func TestOpen_Unreachable(t *testing.T) {
	if _, err := Open(context.Background(), Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond}); err == nil {
		t.Fatalf("expected an error for an unreachable server")
	}
}

func TestKVStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, Options{Addr: addr, Prefix: "test:" + uuid.NewString() + ":"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get(ctx, "authToken"); ok || err != nil {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "authToken", "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, err := s.Get(ctx, "authToken"); err != nil || !ok || v != "tok" {
		t.Fatalf("unexpected value %q ok=%v err=%v", v, ok, err)
	}
	if err := s.MultiRemove(ctx, "authToken", "userData"); err != nil {
		t.Fatalf("multi remove: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "authToken"); ok {
		t.Fatalf("key should be gone")
	}
}
