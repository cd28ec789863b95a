package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options for Open. Prefix namespaces every key so several devices or
// profiles can share one database.
type Options struct {
	Addr        string
	DB          int
	Prefix      string
	DialTimeout time.Duration
}

// KVStore stores each key as a plain Redis string under prefix.
type KVStore struct {
	client *redis.Client
	prefix string
}

// Open dials Redis and fails fast when the server does not answer a PING.
func Open(ctx context.Context, o Options) (*KVStore, error) {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        o.Addr,
		DB:          o.DB,
		DialTimeout: o.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, o.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis kv %s: %w", o.Addr, err)
	}
	return NewKVStore(client, o.Prefix), nil
}

func NewKVStore(client *redis.Client, prefix string) *KVStore {
	return &KVStore{client: client, prefix: prefix}
}

// Close releases the client's connection pool.
func (s *KVStore) Close() error { return s.client.Close() }

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value without expiry; session lifetime is governed by the token.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	return s.MultiRemove(ctx, key)
}

func (s *KVStore) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, s.keys(keys)...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *KVStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *KVStore) key(k string) string { return s.prefix + k }

func (s *KVStore) keys(ks []string) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = s.key(k)
	}
	return out
}
