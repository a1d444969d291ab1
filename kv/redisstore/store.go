// Package redisstore implements kv.Store on top of Redis. It is intended
// for host applications that keep SDK state in a shared Redis instance
// (server-side rendering, test harnesses, multi-process simulators).
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/kv"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store is a Redis-backed kv.Store. Keys are namespaced by prefix; values
// are encoded with kv.Encode and stored without expiry.
type Store[K ~string, V any] struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a Store. An empty prefix defaults to "gs".
func New[K ~string, V any](client redis.UniversalClient, prefix string) *Store[K, V] {
	if prefix == "" {
		prefix = "gs"
	}
	return &Store[K, V]{redis: client, prefix: prefix}
}

func (s *Store[K, V]) key(k K) string {
	return s.prefix + ":" + string(k)
}

// Get loads and decodes the value stored under k.
func (s *Store[K, V]) Get(ctx context.Context, k K) (V, bool, error) {
	var zero V

	data, err := s.redis.Get(ctx, s.key(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	v, err := kv.Decode[V](data)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Set encodes and stores v under k.
func (s *Store[K, V]) Set(ctx context.Context, k K, v V) error {
	data, err := kv.Encode(v)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(k), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes k. Deleting a missing key is a no-op.
func (s *Store[K, V]) Delete(ctx context.Context, k K) error {
	if err := s.redis.Del(ctx, s.key(k)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
