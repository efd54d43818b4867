package pagevault

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Mutation log entries live in a Badger directory under 8-byte big-endian
// sequence keys. Sequence numbers start at 1 and resume at max+1 across
// restarts; keys of any other length are foreign and ignored.
const logKeySize = 8

type mutationLog struct {
	bdb     *badger.DB
	codec   *codec
	logger  *slog.Logger
	nextSeq uint64
}

func openMutationLog(dir string, cod *codec, opt Options) (*mutationLog, error) {
	bopt := badger.DefaultOptions(dir)
	bopt = bopt.WithLogger(badgerLogAdapter{opt.Logger})
	bopt = bopt.WithSyncWrites(!opt.IsTesting)
	bdb, err := badger.Open(bopt)
	if err != nil {
		return nil, storeErrf(ErrLogBackend, err, "cannot open mutation log at %s", dir)
	}

	l := &mutationLog{bdb: bdb, codec: cod, logger: opt.Logger, nextSeq: 1}
	if err := l.resumeSequence(); err != nil {
		bdb.Close()
		return nil, err
	}
	return l, nil
}

func (l *mutationLog) close() error {
	return l.bdb.Close()
}

func (l *mutationLog) resumeSequence() error {
	var maxSeq uint64
	err := l.bdb.View(func(txn *badger.Txn) error {
		iopt := badger.DefaultIteratorOptions
		iopt.PrefetchValues = false
		it := txn.NewIterator(iopt)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if len(key) != logKeySize {
				l.logger.LogAttrs(context.Background(), slog.LevelWarn, "pagevault: ignoring foreign key in mutation log", hexAttr("key", key))
				continue
			}
			if seq := binary.BigEndian.Uint64(key); seq >= maxSeq {
				maxSeq = seq
			}
		}
		return nil
	})
	if err != nil {
		return storeErrf(ErrLogBackend, err, "cannot scan mutation log")
	}
	l.nextSeq = maxSeq + 1
	return nil
}

// append durably stores one entry under the next sequence key. The sequence
// advances only after the write committed.
func (l *mutationLog) append(e LogEntry) error {
	plain := encodeMsgpack(valueBytes(), &e)
	data := l.codec.encode(plain)
	releaseValueBytes(plain)
	key := seqKey(l.nextSeq)
	err := l.bdb.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return storeErrf(ErrLogBackend, err, "cannot append entry %d", l.nextSeq)
	}
	l.nextSeq++
	return nil
}

// iterate calls fn with the raw stored value of every entry in ascending
// sequence order. Values are only valid for the duration of the call.
func (l *mutationLog) iterate(fn func(seq uint64, raw []byte)) error {
	err := l.bdb.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()
			if len(key) != logKeySize {
				continue
			}
			seq := binary.BigEndian.Uint64(key)
			err := item.Value(func(val []byte) error {
				fn(seq, val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErrf(ErrLogBackend, err, "cannot iterate mutation log")
	}
	return nil
}

// clear removes every entry and restarts the sequence. Callers must have
// committed a snapshot first.
func (l *mutationLog) clear() error {
	if err := l.bdb.DropAll(); err != nil {
		return storeErrf(ErrLogBackend, err, "cannot clear mutation log")
	}
	l.nextSeq = 1
	return nil
}

func (l *mutationLog) entryCount() (int, error) {
	var n int
	err := l.bdb.View(func(txn *badger.Txn) error {
		iopt := badger.DefaultIteratorOptions
		iopt.PrefetchValues = false
		it := txn.NewIterator(iopt)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if len(it.Item().Key()) == logKeySize {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, storeErrf(ErrLogBackend, err, "cannot scan mutation log")
	}
	return n, nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, logKeySize)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

type badgerLogAdapter struct {
	logger *slog.Logger
}

func (a badgerLogAdapter) Errorf(format string, args ...any)   { a.log(slog.LevelError, format, args) }
func (a badgerLogAdapter) Warningf(format string, args ...any) { a.log(slog.LevelWarn, format, args) }
func (a badgerLogAdapter) Infof(format string, args ...any)    { a.log(slog.LevelDebug, format, args) }
func (a badgerLogAdapter) Debugf(format string, args ...any)   { a.log(slog.LevelDebug, format, args) }

func (a badgerLogAdapter) log(level slog.Level, format string, args []any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	a.logger.Log(context.Background(), level, "badger: "+msg)
}
