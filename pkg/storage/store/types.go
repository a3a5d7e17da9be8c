package store

import "errors"

var (
	NotExist = errors.New("NotExist")
	Closed   = errors.New("store closed")
)

type DB interface {
	Sync() error

	Close() error
	// kv
	Del([]byte) error
	Set([]byte, []byte) error
	Get([]byte) ([]byte, error)
	Has([]byte) (bool, error)

	NewTransaction() Transaction
	NewIterator([]byte, []byte) Iterator
}

type Transaction interface {
	Commit() error
	Cancel() error

	// kv
	Del([]byte) error
	Set([]byte, []byte) error
	Get([]byte) ([]byte, error)
}

// Iterator walks keys in binary order. It starts before the first entry, so
// Next must be called before Key and Value.
type Iterator interface {
	Next() bool

	Error() error

	Key() []byte

	Value() []byte

	Release()
}

// Keys returns every key under prefix.
func Keys(db DB, prefix []byte) ([][]byte, error) {
	itr := db.NewIterator(prefix, prefix)
	defer itr.Release()

	var keys [][]byte
	for itr.Next() {
		keys = append(keys, itr.Key())
	}
	return keys, itr.Error()
}

// Values returns every value under prefix.
func Values(db DB, prefix []byte) ([][]byte, error) {
	itr := db.NewIterator(prefix, prefix)
	defer itr.Release()

	var vals [][]byte
	for itr.Next() {
		v := itr.Value()
		if err := itr.Error(); err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, itr.Error()
}
