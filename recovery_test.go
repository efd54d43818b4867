package pagevault

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/mosaicbrowser/pagevault/pagegraph"
)

func TestRecoverAppliesEveryKind(t *testing.T) {
	s := setup(t)

	n1, n2 := uuid.New(), uuid.New()
	ensure(s.LogMutation(AddNode(n1, "https://example.com/a", 1, 2)))
	ensure(s.LogMutation(AddNode(n2, "https://example.com/b", 3, 4)))
	ensure(s.LogMutation(AddEdge(n1, n2, pagegraph.EdgeHyperlink)))
	ensure(s.LogMutation(AddEdge(n2, n1, pagegraph.EdgeHistory)))
	ensure(s.LogMutation(UpdateNodeTitle(n1, "Title")))
	ensure(s.LogMutation(UpdateNodeURL(n1, "https://example.com/moved")))
	ensure(s.LogMutation(PinNode(n1, true)))
	ensure(s.LogMutation(RemoveEdge(n2, n1, pagegraph.EdgeHistory)))
	ensure(s.LogMutation(RemoveNode(n2)))

	g := must(s.Recover())
	deepEqual(t, g.NodeCount(), 1)
	deepEqual(t, g.EdgeCount(), 0)

	h, ok := g.NodeByID(n1)
	deepEqual(t, ok, true)
	n := g.Node(h)
	deepEqual(t, n.Title, "Title")
	deepEqual(t, n.URL, "https://example.com/moved")
	deepEqual(t, n.Pinned, true)

	ensure(s.LogMutation(ClearGraph()))
	g2, err := s.Recover()
	ensure(err)
	isnil(t, g2)
}

func TestRecoverClearThenAdd(t *testing.T) {
	s := setup(t)

	nx, ny := uuid.New(), uuid.New()
	ensure(s.LogMutation(AddNode(nx, "https://example.com/x", 0, 0)))
	ensure(s.LogMutation(ClearGraph()))
	ensure(s.LogMutation(AddNode(ny, "https://example.com/y", 0, 0)))

	g := must(s.Recover())
	deepEqual(t, g.NodeCount(), 1)
	_, ok := g.NodeByID(nx)
	deepEqual(t, ok, false)
	_, ok = g.NodeByID(ny)
	deepEqual(t, ok, true)
}

func TestRecoverClearThenAddAfterSnapshot(t *testing.T) {
	s := setup(t)

	nx := uuid.New()
	g := pagegraph.New()
	g.AddNode(&pagegraph.Node{ID: nx, URL: "https://example.com/x"})
	ensure(s.TakeSnapshot(g))

	ny := uuid.New()
	ensure(s.LogMutation(ClearGraph()))
	ensure(s.LogMutation(AddNode(ny, "https://example.com/y", 0, 0)))

	s = reopen(t, s)
	got := must(s.Recover())
	deepEqual(t, got.NodeCount(), 1)
	deepEqual(t, got.EdgeCount(), 0)
	_, ok := got.NodeByID(nx)
	deepEqual(t, ok, false)
	_, ok = got.NodeByID(ny)
	deepEqual(t, ok, true)
}

func TestRecoverSkipsUnknownNodes(t *testing.T) {
	s := setup(t)

	n1 := uuid.New()
	ensure(s.LogMutation(UpdateNodeTitle(uuid.New(), "nobody")))
	ensure(s.LogMutation(PinNode(uuid.New(), true)))
	ensure(s.LogMutation(RemoveNode(uuid.New())))
	ensure(s.LogMutation(AddEdge(uuid.New(), uuid.New(), pagegraph.EdgeHyperlink)))
	ensure(s.LogMutation(AddNode(n1, "https://example.com/a", 0, 0)))

	g := must(s.Recover())
	deepEqual(t, g.NodeCount(), 1)
	deepEqual(t, g.EdgeCount(), 0)
	_, ok := g.NodeByID(n1)
	deepEqual(t, ok, true)
}

func TestRecoverSkipsInvalidIDs(t *testing.T) {
	s := setup(t)

	ensure(s.LogMutation(LogEntry{Kind: EntryAddNode, NodeID: "not-a-uuid", URL: "https://example.com/x"}))
	ensure(s.LogMutation(LogEntry{Kind: EntryAddEdge, From: "junk", To: uuid.New().String(), EdgeType: pagegraph.EdgeHyperlink}))
	ensure(s.LogMutation(AddNode(uuid.New(), "https://example.com/a", 0, 0)))

	g := must(s.Recover())
	deepEqual(t, g.NodeCount(), 1)
	deepEqual(t, g.EdgeCount(), 0)
}

func TestRecoverSkipsInvalidEdgeType(t *testing.T) {
	s := setup(t)

	n1, n2 := uuid.New(), uuid.New()
	ensure(s.LogMutation(AddNode(n1, "https://example.com/a", 0, 0)))
	ensure(s.LogMutation(AddNode(n2, "https://example.com/b", 0, 0)))
	// bypasses LogMutation validation
	ensure(s.log.append(LogEntry{Kind: EntryAddEdge, From: n1.String(), To: n2.String(), EdgeType: 99}))
	ensure(s.log.append(LogEntry{Kind: EntryRemoveEdge, From: n1.String(), To: n2.String()}))
	ensure(s.LogMutation(AddEdge(n1, n2, pagegraph.EdgeHyperlink)))

	g := must(s.Recover())
	deepEqual(t, g.NodeCount(), 2)
	deepEqual(t, g.EdgeCount(), 1)
	h1, _ := g.NodeByID(n1)
	h2, _ := g.NodeByID(n2)
	deepEqual(t, g.HasEdge(h1, h2, pagegraph.EdgeHyperlink), true)
}

func TestRecoverSkipsCorruptEntries(t *testing.T) {
	s := setup(t)

	n1, n2, n3 := uuid.New(), uuid.New(), uuid.New()
	ensure(s.LogMutation(AddNode(n1, "https://example.com/1", 0, 0)))
	ensure(s.LogMutation(AddNode(n2, "https://example.com/2", 0, 0)))
	ensure(s.LogMutation(AddNode(n3, "https://example.com/3", 0, 0)))

	// flip one bit in the middle entry on disk
	ensure(s.log.bdb.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(seqKey(2))
		if err != nil {
			return err
		}
		val := must(item.ValueCopy(nil))
		val[len(val)-1] ^= 0x01
		return txn.Set(seqKey(2), val)
	}))

	g := must(s.Recover())
	deepEqual(t, g.NodeCount(), 2)
	_, ok := g.NodeByID(n1)
	deepEqual(t, ok, true)
	_, ok = g.NodeByID(n2)
	deepEqual(t, ok, false)
	_, ok = g.NodeByID(n3)
	deepEqual(t, ok, true)
}

func TestRecoverCorruptSnapshotFallsBackToLog(t *testing.T) {
	s := setup(t)

	n1 := uuid.New()
	g := pagegraph.New()
	g.AddNode(&pagegraph.Node{ID: n1, URL: "https://example.com/1"})
	ensure(s.TakeSnapshot(g))

	n2 := uuid.New()
	ensure(s.LogMutation(AddNode(n2, "https://example.com/2", 0, 0)))

	ensure(s.tables.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(snapshotsBucket)
		val := append([]byte(nil), b.Get([]byte(latestKey))...)
		val[len(val)-1] ^= 0x01
		return b.Put([]byte(latestKey), val)
	}))

	got := must(s.Recover())
	deepEqual(t, got.NodeCount(), 1)
	_, ok := got.NodeByID(n2)
	deepEqual(t, ok, true)
	_, ok = got.NodeByID(n1)
	deepEqual(t, ok, false)
}

func TestRecoverSnapshotBackendFailure(t *testing.T) {
	s := setup(t)
	ensure(s.LogMutation(AddNode(uuid.New(), "https://example.com/a", 0, 0)))

	// a backend read failure aborts recovery instead of dropping to an
	// empty graph
	ensure(s.tables.bdb.Close())

	g, err := s.Recover()
	isnil(t, g)
	if Kind(err) != ErrSnapshotBackend {
		t.Fatalf("Recover: Kind = %v, wanted ErrSnapshotBackend", Kind(err))
	}
}

func TestRecoverDuplicateAddNode(t *testing.T) {
	s := setup(t)

	n1 := uuid.New()
	ensure(s.LogMutation(AddNode(n1, "https://example.com/first", 0, 0)))
	ensure(s.LogMutation(AddNode(n1, "https://example.com/again", 0, 0)))

	g := must(s.Recover())
	deepEqual(t, g.NodeCount(), 1)
	h, _ := g.NodeByID(n1)
	deepEqual(t, g.Node(h).URL, "https://example.com/first")
}

func TestTakeSnapshotNilGraph(t *testing.T) {
	s := setup(t)

	ensure(s.LogMutation(AddNode(uuid.New(), "https://example.com/x", 0, 0)))
	ensure(s.TakeSnapshot(nil))

	deepEqual(t, must(s.LogStats()).Entries, 0)
	g, err := s.Recover()
	ensure(err)
	isnil(t, g)
}

func TestSnapshotTimestamp(t *testing.T) {
	s, clock := setupClock(t)

	g := pagegraph.New()
	g.AddNode(&pagegraph.Node{URL: "https://example.com/a"})
	ensure(s.TakeSnapshot(g))

	data := must(s.tables.get(snapshotsBucket, latestKey))
	var snap pagegraph.GraphSnapshot
	ensure(decodeMsgpack(data, &snap))
	deepEqual(t, snap.TimestampSecs, uint64(clock.Now().Unix()))
}
