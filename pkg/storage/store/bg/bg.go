// Package bg implements store.DB on top of badger.
package bg

import (
	"fmt"

	"github.com/dgraph-io/badger"
	"github.com/korthochain/korthoattest/pkg/storage/store"
	"go.uber.org/zap"
)

// New wraps an open badger database.
func New(db *badger.DB) store.DB {
	return &bgStore{db: db}
}

// Open opens (or creates) a badger database in dir and routes its log output
// through log.
func Open(dir string, log *zap.Logger) (store.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(newLogger(log))
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", dir, err)
	}
	return New(db), nil
}

func (db *bgStore) Sync() error {
	return db.db.Sync()
}

func (db *bgStore) Close() error {
	return db.db.Close()
}

func (db *bgStore) Del(key []byte) error {
	return db.db.Update(func(tx *badger.Txn) error {
		return tx.Delete(key)
	})
}

func (db *bgStore) Set(key, value []byte) error {
	return db.db.Update(func(tx *badger.Txn) error {
		return tx.Set(key, value)
	})
}

func (db *bgStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := db.db.View(func(tx *badger.Txn) error {
		v, err := get(tx, key)
		value = v
		return err
	})
	return value, err
}

func (db *bgStore) Has(key []byte) (bool, error) {
	_, err := db.Get(key)
	switch err {
	case nil:
		return true, nil
	case store.NotExist:
		return false, nil
	default:
		return false, err
	}
}

func (db *bgStore) NewTransaction() store.Transaction {
	return &bgTransaction{tx: db.db.NewTransaction(true)}
}

func (tx *bgTransaction) Commit() error {
	return tx.tx.Commit()
}

func (tx *bgTransaction) Cancel() error {
	tx.tx.Discard()
	return nil
}

func (tx *bgTransaction) Del(key []byte) error {
	return tx.tx.Delete(key)
}

func (tx *bgTransaction) Set(key, value []byte) error {
	return tx.tx.Set(key, value)
}

func (tx *bgTransaction) Get(key []byte) ([]byte, error) {
	return get(tx.tx, key)
}

func get(tx *badger.Txn, key []byte) ([]byte, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, store.NotExist
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
