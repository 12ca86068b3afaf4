package kvstore

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}

	var valCopy []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrKeyNotFound
			}
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		valCopy = val
		return nil
	})
	return valCopy, err
}

func (b *BadgerStore) Set(key string, value []byte) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// SetMulti writes all entries inside one badger transaction, so a settlement
// touching several records commits all-or-nothing.
func (b *BadgerStore) SetMulti(entries map[string][]byte) error {
	for k := range entries {
		if k == "" {
			return ErrKeyEmpty
		}
	}
	return b.db.Update(func(txn *badger.Txn) error {
		for k, v := range entries {
			if err := txn.Set([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerStore) Delete(key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *BadgerStore) List(prefix string) ([]*KVPair, error) {
	if prefix == "" {
		return nil, fmt.Errorf("kvstore: prefix is empty")
	}

	result := make([]*KVPair, 0)
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result = append(result, &KVPair{
				Key:   string(k),
				Value: v,
			})
		}
		return nil
	})
	return result, err
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
