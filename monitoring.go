package pagevault

import (
	"go.etcd.io/bbolt"
)

// TableStats describes one bucket of the table store, sizes as reported by
// Bolt.
type TableStats struct {
	Keys      int
	DataSize  int
	DataAlloc int
}

func (ts *TableStats) add(bs bbolt.BucketStats) {
	ts.Keys += bs.KeyN
	ts.DataSize += bs.LeafInuse + bs.InlineBucketInuse
	ts.DataAlloc += bs.BranchAlloc + bs.LeafAlloc
}

// StoreStats aggregates the on-disk footprint across both backends.
type StoreStats struct {
	Snapshots TableStats
	Layouts   TableStats
	Log       LogStats
}

func (s *Store) Stats() (StoreStats, error) {
	if s.closed {
		return StoreStats{}, ErrClosed
	}

	var st StoreStats
	err := s.tables.bdb.View(func(tx *bbolt.Tx) error {
		st.Snapshots.add(tx.Bucket(snapshotsBucket).Stats())
		st.Layouts.add(tx.Bucket(tileLayoutBucket).Stats())
		return nil
	})
	if err != nil {
		return StoreStats{}, storeErrf(ErrSnapshotBackend, err, "cannot collect table stats")
	}

	st.Log, err = s.LogStats()
	if err != nil {
		return StoreStats{}, err
	}
	return st, nil
}
