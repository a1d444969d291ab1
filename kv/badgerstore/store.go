// Package badgerstore implements kv.Store on an embedded Badger database,
// the on-device equivalent of a keychain for hosts without one.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/kv"
	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "gosession:"

// Store is a Badger-backed kv.Store.
type Store[K ~string, V any] struct {
	db *badger.DB
}

// New wraps an open Badger database. The caller owns db and closes it.
func New[K ~string, V any](db *badger.DB) *Store[K, V] {
	return &Store[K, V]{db: db}
}

// Open opens (or creates) a Badger database in dir. An empty dir opens an
// in-memory database.
func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

func (s *Store[K, V]) Get(_ context.Context, k K) (V, bool, error) {
	var (
		out   V
		found bool
	)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + string(k)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", k, err)
		}

		return item.Value(func(val []byte) error {
			v, err := kv.Decode[V](val)
			if err != nil {
				return err
			}
			out = v
			found = true
			return nil
		})
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return out, found, nil
}

func (s *Store[K, V]) Set(_ context.Context, k K, v V) error {
	data, err := kv.Encode(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+string(k)), data)
	})
}

func (s *Store[K, V]) Delete(_ context.Context, k K) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + string(k)))
	})
}
