package pagevault

import (
	"fmt"
	"strings"

	"go.etcd.io/bbolt"
)

type DumpFlags uint64

const (
	DumpTables = DumpFlags(1 << iota)
	DumpValues
	DumpLog
	DumpStats

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the persisted state for debugging: bucket keys with value
// sizes and encoding, then the mutation log with entry kinds. Page content
// never appears in the output.
func (s *Store) Dump(f DumpFlags) string {
	if s.closed {
		return "<closed>"
	}

	var buf strings.Builder
	if f.Contains(DumpTables) {
		err := s.tables.bdb.View(func(tx *bbolt.Tx) error {
			for _, bucket := range tableBuckets {
				s.dumpBucket(&buf, f, tx, bucket)
			}
			return nil
		})
		if err != nil {
			fmt.Fprintf(&buf, "** ERROR: %v\n", err)
		}
	}
	if f.Contains(DumpLog) {
		s.dumpLog(&buf, f)
	}
	return buf.String()
}

func (s *Store) dumpBucket(w *strings.Builder, f DumpFlags, tx *bbolt.Tx, bucket []byte) {
	b := tx.Bucket(bucket)
	st := b.Stats()

	fmt.Fprintln(w, dumpSep1)
	fmt.Fprintf(w, "%s (%d keys)\n", bucket, st.KeyN)
	if f.Contains(DumpStats) {
		fmt.Fprintf(w, "%s.stats: data_size = %d, data_alloc = %d\n", bucket, st.LeafInuse+st.InlineBucketInuse, st.BranchAlloc+st.LeafAlloc)
	}

	if f.Contains(DumpValues) {
		fmt.Fprintln(w, dumpSep2)
		c := b.Cursor()
		var pos int
		for k, v := c.First(); k != nil; k, v = c.Next() {
			pos++
			enc := "plain"
			if hasCodecMagic(v) {
				enc = "sealed"
			}
			fmt.Fprintf(w, "%s.%d = %s (%s, %d bytes)\n", bucket, pos, k, enc, len(v))
		}
	}
}

func (s *Store) dumpLog(w *strings.Builder, f DumpFlags) {
	fmt.Fprintln(w, dumpSep1)
	n, err := s.log.entryCount()
	if err != nil {
		fmt.Fprintf(w, "log ** ERROR: %v\n", err)
		return
	}
	fmt.Fprintf(w, "log (%d entries, next seq %d)\n", n, s.log.nextSeq)

	if !f.Contains(DumpValues) {
		return
	}
	fmt.Fprintln(w, dumpSep2)
	err = s.log.iterate(func(seq uint64, raw []byte) {
		kind := "?"
		if plain, err := s.codec.decode(raw); err == nil {
			var e LogEntry
			if decodeMsgpack(plain, &e) == nil {
				kind = e.Kind.String()
			}
		}
		fmt.Fprintf(w, "log.%d = %s (%d bytes)\n", seq, kind, len(raw))
	})
	if err != nil {
		fmt.Fprintf(w, "log ** ERROR: %v\n", err)
	}
}
