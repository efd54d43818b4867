package pagevault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/99designs/keyring"
)

const (
	logDirName    = "log"
	tableFileName = "tables.db"

	DefaultSnapshotInterval = 5 * time.Minute
)

// Store is a durable page-graph store: an append-only mutation log plus
// periodic full snapshots, everything encrypted at rest.
//
// A Store expects a single logical owner. Calls are synchronous and must be
// serialized by the caller.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	codec  *codec
	log    *mutationLog
	tables *tableStore

	snapshotInterval time.Duration
	lastSnapshotAt   time.Time
	closed           bool
}

type Options struct {
	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// SnapshotInterval is the cadence enforced by CheckPeriodicSnapshot.
	// Zero means DefaultSnapshotInterval.
	SnapshotInterval time.Duration

	// IsTesting trades durability for speed in both backends and permits Key.
	IsTesting bool

	// Key substitutes a fixed 32-byte secret for the credential store.
	// Requires IsTesting.
	Key []byte

	// Keyring overrides the platform credential store configuration, e.g.
	// to force the file backend. The default uses the OS facility.
	Keyring *keyring.Config

	// Now substitutes the clock used for snapshot timing.
	Now func() time.Time
}

func Open(dir string, opt Options) (*Store, error) {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.SnapshotInterval == 0 {
		opt.SnapshotInterval = DefaultSnapshotInterval
	}
	if opt.SnapshotInterval < 0 {
		return nil, fmt.Errorf("pagevault: snapshot interval must be positive, got %v", opt.SnapshotInterval)
	}
	if opt.Key != nil && !opt.IsTesting {
		return nil, fmt.Errorf("pagevault: explicit keys require Options.IsTesting")
	}

	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, storeErrf(ErrIO, err, "cannot create store directory %s", dir)
	}

	key, err := loadOrCreateKey(dir, opt)
	if err != nil {
		return nil, err
	}
	cod, err := newCodec(key)
	if err != nil {
		return nil, err
	}

	tables, err := openTableStore(filepath.Join(dir, tableFileName), cod, opt)
	if err != nil {
		return nil, err
	}
	mlog, err := openMutationLog(filepath.Join(dir, logDirName), cod, opt)
	if err != nil {
		tables.close()
		return nil, err
	}

	s := &Store{
		dir:              dir,
		logger:           opt.Logger,
		now:              opt.Now,
		codec:            cod,
		log:              mlog,
		tables:           tables,
		snapshotInterval: opt.SnapshotInterval,
	}
	s.lastSnapshotAt = s.now()

	if err := s.migrateLegacyStore(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.log.close(), s.tables.close())
}

// LogMutation durably appends one graph mutation. The entry is on disk when
// the call returns.
func (s *Store) LogMutation(e LogEntry) error {
	if s.closed {
		return ErrClosed
	}
	if err := e.validate(); err != nil {
		return err
	}
	return s.log.append(e)
}

// SetSnapshotInterval changes the periodic snapshot cadence. The interval
// must be positive.
func (s *Store) SetSnapshotInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("pagevault: snapshot interval must be positive, got %v", d)
	}
	s.snapshotInterval = d
	return nil
}

func (s *Store) SnapshotInterval() time.Duration {
	return s.snapshotInterval
}

// ClearAll wipes every persisted value: the mutation log, all snapshots and
// all layouts. The encryption key is left in place.
func (s *Store) ClearAll() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.tables.clear(); err != nil {
		return err
	}
	return s.log.clear()
}

func (s *Store) warn(msg string, attrs ...slog.Attr) {
	s.logger.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs...)
}

func (s *Store) info(msg string, attrs ...slog.Attr) {
	s.logger.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
}

type LogStats struct {
	Entries int
	NextSeq uint64
}

func (s *Store) LogStats() (LogStats, error) {
	if s.closed {
		return LogStats{}, ErrClosed
	}
	n, err := s.log.entryCount()
	if err != nil {
		return LogStats{}, err
	}
	return LogStats{Entries: n, NextSeq: s.log.nextSeq}, nil
}
