package memory

import (
	"context"
	"testing"
)

func TestKVStore_RoundTrip(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "authToken"); ok || err != nil {
		t.Fatalf("expected missing key")
	}
	_ = s.Set(ctx, "authToken", "tok")
	_ = s.Set(ctx, "userData", "{}")
	_ = s.Set(ctx, "isDarkMode", "true")

	if v, ok, _ := s.Get(ctx, "authToken"); !ok || v != "tok" {
		t.Fatalf("unexpected value %q", v)
	}

	_ = s.MultiRemove(ctx, "authToken", "userData", "never-set")
	if s.Len() != 1 {
		t.Fatalf("expected 1 key left, got %d", s.Len())
	}
	_ = s.Remove(ctx, "isDarkMode")
	if s.Len() != 0 {
		t.Fatalf("expected empty store")
	}
}
