// Package wallet keeps received attestations in a store.DB, indexed by their id.
package wallet

import (
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/korthochain/korthoattest/pkg/attestation"
	"github.com/korthochain/korthoattest/pkg/logger"
	"github.com/korthochain/korthoattest/pkg/storage/store"
	"go.uber.org/zap"
)

const defaultCacheSize = 1024

var (
	// AttestationPrefix prefix of stored attestation keys
	AttestationPrefix = []byte("attestation/")

	ErrNotFound = errors.New("attestation not found")
)

type Config struct {
	// CacheSize bounds the number of decoded attestations kept in memory.
	CacheSize int

	// Now stamps newly stored attestations. Defaults to time.Now.
	Now func() time.Time

	Logger *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		CacheSize: defaultCacheSize,
		Now:       time.Now,
	}
}

// Entry is a stored attestation.
type Entry struct {
	ID          attestation.ID
	Received    time.Time
	Attestation *attestation.Attestation
}

type Wallet struct {
	db     store.DB
	cache  gcache.Cache
	now    func() time.Time
	logger *zap.Logger
}

func New(db store.DB, cfg Config) *Wallet {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Logger
	}

	return &Wallet{
		db:     db,
		cache:  gcache.New(cfg.CacheSize).LRU().Build(),
		now:    cfg.Now,
		logger: cfg.Logger.Named("wallet"),
	}
}

// Put stores att and returns its id. Storing the same attestation twice keeps the
// first receive time.
func (w *Wallet) Put(att *attestation.Attestation) (attestation.ID, error) {
	id, err := att.ID()
	if err != nil {
		return attestation.ID{}, err
	}

	ok, err := w.db.Has(key(id))
	if err != nil {
		return id, err
	}
	if ok {
		return id, nil
	}

	r := &record{
		Version:     recordVersion,
		Received:    uint64(w.now().Unix()),
		Attestation: att,
	}
	data, err := r.Serialize()
	if err != nil {
		return id, err
	}

	if err := w.db.Set(key(id), data); err != nil {
		w.logger.Error("failed to store attestation", zap.String("id", id.String()), zap.Error(err))
		return id, err
	}

	w.cache.Set(id, entryOf(id, r))
	w.logger.Debug("attestation stored", zap.String("id", id.String()), zap.Int("bitpairs", len(att.BitPairs)))
	return id, nil
}

// PutBytes decodes a serialized attestation and stores it.
func (w *Wallet) PutBytes(data []byte) (attestation.ID, *attestation.Attestation, error) {
	att, err := attestation.Deserialize(data)
	if err != nil {
		return attestation.ID{}, nil, fmt.Errorf("decode attestation: %w", err)
	}

	id, err := w.Put(att)
	return id, att, err
}

// Get returns the attestation stored under id, or ErrNotFound.
func (w *Wallet) Get(id attestation.ID) (*Entry, error) {
	if v, err := w.cache.Get(id); err == nil {
		return v.(*Entry), nil
	}

	data, err := w.db.Get(key(id))
	if err == store.NotExist {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	r, err := deserializeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("corrupt record %s: %w", id, err)
	}

	e := entryOf(id, r)
	w.cache.Set(id, e)
	return e, nil
}

func (w *Wallet) Has(id attestation.ID) (bool, error) {
	if _, err := w.cache.GetIFPresent(id); err == nil {
		return true, nil
	}
	return w.db.Has(key(id))
}

func (w *Wallet) Delete(id attestation.ID) error {
	w.cache.Remove(id)
	return w.db.Del(key(id))
}

// List returns the ids of all stored attestations in key order.
func (w *Wallet) List() ([]attestation.ID, error) {
	keys, err := store.Keys(w.db, AttestationPrefix)
	if err != nil {
		return nil, err
	}

	ids := make([]attestation.ID, 0, len(keys))
	for _, k := range keys {
		var id attestation.ID
		copy(id[:], k[len(AttestationPrefix):])
		ids = append(ids, id)
	}
	return ids, nil
}

func key(id attestation.ID) []byte {
	k := make([]byte, 0, len(AttestationPrefix)+attestation.IDSize)
	k = append(k, AttestationPrefix...)
	return append(k, id[:]...)
}

func entryOf(id attestation.ID, r *record) *Entry {
	return &Entry{
		ID:          id,
		Received:    time.Unix(int64(r.Received), 0),
		Attestation: r.Attestation,
	}
}
