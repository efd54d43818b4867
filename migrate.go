package pagevault

import (
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"go.etcd.io/bbolt"
)

// Stores written before encryption hold plaintext values. On open, every
// value still lacking the codec magic is re-encoded in place, one value per
// transaction, so a crash mid-migration loses nothing and the next open
// picks up whatever is left. Values that fail to migrate are logged and
// retried on the next open.
func (s *Store) migrateLegacyStore() error {
	tn, err := s.migrateTables()
	if err != nil {
		return err
	}
	ln, err := s.migrateLog()
	if err != nil {
		return err
	}
	if tn+ln > 0 {
		s.info("pagevault: migrated legacy plaintext values",
			slog.Int("tables", tn), slog.Int("log", ln))
	}
	return nil
}

func (s *Store) migrateTables() (int, error) {
	type slot struct {
		bucket []byte
		key    []byte
	}
	var plain []slot
	err := s.tables.bdb.View(func(tx *bbolt.Tx) error {
		for _, name := range tableBuckets {
			c := tx.Bucket(name).Cursor()
			for k, v := c.First(); k != nil; k, v = c.Next() {
				if !hasCodecMagic(v) {
					plain = append(plain, slot{name, append([]byte(nil), k...)})
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, storeErrf(ErrSnapshotBackend, err, "cannot scan tables for migration")
	}

	migrated := 0
	for _, sl := range plain {
		err := s.tables.bdb.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket(sl.bucket)
			v := b.Get(sl.key)
			if v == nil || hasCodecMagic(v) {
				return nil
			}
			return b.Put(sl.key, s.codec.encode(v))
		})
		if err != nil {
			s.warn("pagevault: cannot migrate table value, will retry on next open",
				hexAttr("key", sl.key), slog.Any("err", err))
			continue
		}
		migrated++
	}
	return migrated, nil
}

func (s *Store) migrateLog() (int, error) {
	var plainKeys [][]byte
	err := s.log.bdb.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if len(item.Key()) != logKeySize {
				continue
			}
			err := item.Value(func(val []byte) error {
				if !hasCodecMagic(val) {
					plainKeys = append(plainKeys, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, storeErrf(ErrLogBackend, err, "cannot scan mutation log for migration")
	}

	migrated := 0
	for _, key := range plainKeys {
		err := s.log.bdb.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if hasCodecMagic(val) {
				return nil
			}
			return txn.Set(key, s.codec.encode(val))
		})
		if err != nil {
			s.warn("pagevault: cannot migrate log entry, will retry on next open",
				hexAttr("key", key), slog.Any("err", err))
			continue
		}
		migrated++
	}
	return migrated, nil
}
