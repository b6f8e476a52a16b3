package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const badgerKeyPrefix = "page:"

type BadgerOptions struct {
	Path     string
	InMemory bool
	Logger   *zap.Logger
}

// BadgerStore keeps pages in an embedded badger database.
type BadgerStore struct {
	db    *badger.DB
	mutex sync.RWMutex
}

func OpenBadgerStore(o BadgerOptions) (*BadgerStore, error) {
	opts := badger.DefaultOptions(o.Path)
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	if o.Logger != nil {
		opts = opts.WithLogger(badgerLogger{o.Logger.Named("badger").Sugar()})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open page store: %w", err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an already open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Get(_ context.Context, key string) (*Page, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var page *Page
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrMiss
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			page, err = decodePage(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *BadgerStore) Put(_ context.Context, key string, page *Page) error {
	data, err := encodePage(page)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+key), data)
	})
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerKeyPrefix + key))
	})
}

func (s *BadgerStore) Keys(_ context.Context) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), badgerKeyPrefix))
		}
		return nil
	})
	return keys, err
}

// Clear drops every stored page.
func (s *BadgerStore) Clear() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.DropPrefix([]byte(badgerKeyPrefix))
}

// Backup writes a full backup stream to w.
func (s *BadgerStore) Backup(w io.Writer) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if _, err := s.db.Backup(w, 0); err != nil {
		return fmt.Errorf("failed to backup page store: %w", err)
	}
	return nil
}

// Restore loads a stream produced by Backup.
func (s *BadgerStore) Restore(r io.Reader) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.db.Load(r, 256); err != nil {
		return fmt.Errorf("failed to restore page store: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.Close()
}

type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
