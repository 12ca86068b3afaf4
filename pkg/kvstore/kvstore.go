package kvstore

import "errors"

var (
	ErrKeyEmpty    = errors.New("kvstore: key is empty")
	ErrKeyNotFound = errors.New("kvstore: key not found")
)

// KVPair is a single key-value entry returned by List.
type KVPair struct {
	Key   string
	Value []byte
}

// KVStore is an interface for a simple key-value store.
//
// SetMulti commits all entries in a single atomic write: either every entry
// becomes visible or none does.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	SetMulti(entries map[string][]byte) error
	Delete(key string) error
	List(prefix string) ([]*KVPair, error)
	Close() error
}
