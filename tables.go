package pagevault

import (
	"bytes"
	"time"

	"go.etcd.io/bbolt"
)

// The table store is a single Bolt file with two buckets. "snapshots" holds
// the working graph snapshot at "latest" plus user-named snapshots under
// "named/"; "tile_layout" holds the default layout at "latest" plus named
// workspace layouts under "workspace/". Values are opaque to this layer and
// always pass through the codec.
var (
	snapshotsBucket  = []byte("snapshots")
	tileLayoutBucket = []byte("tile_layout")

	tableBuckets = [][]byte{snapshotsBucket, tileLayoutBucket}
)

const (
	latestKey       = "latest"
	namedPrefix     = "named/"
	workspacePrefix = "workspace/"
)

type tableStore struct {
	bdb   *bbolt.DB
	codec *codec
}

func openTableStore(path string, cod *codec, opt Options) (*tableStore, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 64
		bopt.FreelistType = bbolt.FreelistMapType
	}

	bdb, err := bbolt.Open(path, 0o666, &bopt)
	if err != nil {
		return nil, storeErrf(ErrSnapshotBackend, err, "cannot open table store at %s", path)
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		for _, name := range tableBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, storeErrf(ErrSnapshotBackend, err, "cannot create tables at %s", path)
	}

	return &tableStore{bdb: bdb, codec: cod}, nil
}

func (ts *tableStore) close() error {
	return ts.bdb.Close()
}

// put encodes plain and replaces the value at key in one transaction.
func (ts *tableStore) put(bucket []byte, key string, plain []byte) error {
	data := ts.codec.encode(plain)
	err := ts.bdb.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put(unsafeBytesFromString(key), data)
	})
	if err != nil {
		return storeErrf(ErrSnapshotBackend, err, "cannot write %s/%s", bucket, key)
	}
	return nil
}

// get returns the decoded value at key, or nil if the key is absent.
func (ts *tableStore) get(bucket []byte, key string) ([]byte, error) {
	var raw []byte
	err := ts.bdb.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucket).Get(unsafeBytesFromString(key))
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, storeErrf(ErrSnapshotBackend, err, "cannot read %s/%s", bucket, key)
	}
	if raw == nil {
		return nil, nil
	}
	return ts.codec.decode(raw)
}

// listKeys returns the keys under prefix with the prefix stripped, in key
// order.
func (ts *tableStore) listKeys(bucket []byte, prefix string) ([]string, error) {
	var names []string
	p := []byte(prefix)
	err := ts.bdb.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			names = append(names, string(k[len(p):]))
		}
		return nil
	})
	if err != nil {
		return nil, storeErrf(ErrSnapshotBackend, err, "cannot list %s/%s*", bucket, prefix)
	}
	return names, nil
}

func (ts *tableStore) delete(bucket []byte, key string) error {
	err := ts.bdb.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Delete(unsafeBytesFromString(key))
	})
	if err != nil {
		return storeErrf(ErrSnapshotBackend, err, "cannot delete %s/%s", bucket, key)
	}
	return nil
}

// clear drops and recreates every bucket in one transaction.
func (ts *tableStore) clear() error {
	err := ts.bdb.Update(func(tx *bbolt.Tx) error {
		for _, name := range tableBuckets {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErrf(ErrSnapshotBackend, err, "cannot clear tables")
	}
	return nil
}
