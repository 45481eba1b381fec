package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const (
	vectorizerPrefix = "vectorizer/"
	classifierPrefix = "classifier/"
)

// BadgerStore keeps artifacts in a Badger database under
// "vectorizer/<ref>" and "classifier/<ref>".
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) the database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an already opened database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) LoadVectorizer(ctx context.Context, ref string) ([]byte, error) {
	return s.get(ctx, vectorizerPrefix+ref)
}

func (s *BadgerStore) LoadClassifier(ctx context.Context, ref string) ([]byte, error) {
	return s.get(ctx, classifierPrefix+ref)
}

// PutVectorizer stores a serialized vectorizer under ref.
func (s *BadgerStore) PutVectorizer(ref string, data []byte) error {
	return s.put(vectorizerPrefix+ref, data)
}

// PutClassifier stores a serialized classifier under ref.
func (s *BadgerStore) PutClassifier(ref string, data []byte) error {
	return s.put(classifierPrefix+ref, data)
}

// Refs lists the stored refs of both kinds.
func (s *BadgerStore) Refs() (vectorizers, classifiers []string, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if ref, ok := strings.CutPrefix(key, vectorizerPrefix); ok {
				vectorizers = append(vectorizers, ref)
			} else if ref, ok := strings.CutPrefix(key, classifierPrefix); ok {
				classifiers = append(classifiers, ref)
			}
		}
		return nil
	})
	return vectorizers, classifiers, err
}

func (s *BadgerStore) get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", key, err)
	}
	return data, nil
}

func (s *BadgerStore) put(key string, data []byte) error {
	if len(key) == 0 || len(data) == 0 {
		return errors.New("artifact key and body are required")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}
