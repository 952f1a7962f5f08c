// Package kvstore keeps resumable upload session URLs in badger.
package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/derektruong/cloudxfer/store"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-logr/logr"
)

const sessionKeyPrefix = "session:"

// Config configures the badger database.
type Config struct {
	// Dir is the badger directory; empty keeps everything in memory.
	Dir string
}

// BadgerSessionStore is the badger backed store.SessionStore.
type BadgerSessionStore struct {
	logger logr.Logger
	db     *badger.DB
}

// NewBadgerSessionStore opens (or creates) the session database.
func NewBadgerSessionStore(logger logr.Logger, cfg Config) (s *BadgerSessionStore, err error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(nil).
		WithLoggingLevel(badger.WARNING)
	if cfg.Dir == "" {
		opts = opts.WithInMemory(true)
	}

	var db *badger.DB
	if db, err = badger.Open(opts); err != nil {
		return nil, fmt.Errorf("failed to open session store at %q: %w", cfg.Dir, err)
	}
	s = &BadgerSessionStore{
		logger: logger.WithName("kvstore.session"),
		db:     db,
	}
	return
}

func (s *BadgerSessionStore) Get(ctx context.Context, key string) (url string, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			url = string(val)
			return nil
		})
	})
	return
}

func (s *BadgerSessionStore) Put(ctx context.Context, key, url string) (err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	if err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(key), []byte(url))
	}); err != nil {
		return
	}
	s.logger.V(1).Info("stored session url", "key", key, "url", url)
	return
}

func (s *BadgerSessionStore) Delete(ctx context.Context, key string) (err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(key))
	})
}

// Close flushes and closes the database.
func (s *BadgerSessionStore) Close() error {
	return s.db.Close()
}

func sessionKey(key string) []byte {
	return []byte(sessionKeyPrefix + key)
}
