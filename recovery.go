package pagevault

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/mosaicbrowser/pagevault/pagegraph"
)

// Recover rebuilds the graph from the latest snapshot plus the mutation log.
// A missing or unreadable snapshot starts replay from an empty graph; log
// entries that cannot be decoded or applied are skipped with a diagnostic
// and never abort recovery. Returns (nil, nil) when the result holds no
// nodes, meaning there is nothing to restore.
func (s *Store) Recover() (*pagegraph.Graph, error) {
	if s.closed {
		return nil, ErrClosed
	}

	g := pagegraph.New()

	data, err := s.tables.get(snapshotsBucket, latestKey)
	if err != nil {
		if Kind(err) == ErrSnapshotBackend {
			return nil, err
		}
		s.warn("pagevault: snapshot unreadable, starting from empty graph", slog.Any("err", err))
	} else if data != nil {
		var snap pagegraph.GraphSnapshot
		if err := decodeMsgpack(data, &snap); err != nil {
			s.warn("pagevault: snapshot corrupted, starting from empty graph", slog.Any("err", err))
		} else {
			g = pagegraph.FromSnapshot(&snap)
		}
	}

	err = s.log.iterate(func(seq uint64, raw []byte) {
		plain, err := s.codec.decode(raw)
		if err != nil {
			s.warn("pagevault: skipping unreadable log entry", slog.Uint64("seq", seq), slog.Any("err", err))
			return
		}
		var e LogEntry
		if err := decodeMsgpack(plain, &e); err != nil {
			s.warn("pagevault: skipping malformed log entry", slog.Uint64("seq", seq), slog.Any("err", err))
			return
		}
		s.applyLogEntry(g, seq, e)
	})
	if err != nil {
		return nil, err
	}

	if g.NodeCount() == 0 {
		return nil, nil
	}
	return g, nil
}

// TakeSnapshot persists the complete graph state, then compacts the log and
// restarts the periodic timer. The log is cleared only after the snapshot
// transaction committed, so a failure in between leaves the previous state
// fully recoverable.
func (s *Store) TakeSnapshot(g *pagegraph.Graph) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.writeSnapshot(latestKey, g); err != nil {
		return err
	}
	if err := s.log.clear(); err != nil {
		return err
	}
	s.lastSnapshotAt = s.now()
	return nil
}

// CheckPeriodicSnapshot takes a snapshot when the configured interval has
// elapsed since the previous one (or since open).
func (s *Store) CheckPeriodicSnapshot(g *pagegraph.Graph) error {
	if s.closed {
		return ErrClosed
	}
	if s.now().Sub(s.lastSnapshotAt) < s.snapshotInterval {
		return nil
	}
	return s.TakeSnapshot(g)
}

func (s *Store) writeSnapshot(key string, g *pagegraph.Graph) error {
	snap := &pagegraph.GraphSnapshot{}
	if g != nil {
		snap = g.ToSnapshot()
	}
	snap.TimestampSecs = uint64(s.now().Unix())

	plain := encodeMsgpack(valueBytes(), snap)
	err := s.tables.put(snapshotsBucket, key, plain)
	releaseValueBytes(plain)
	return err
}

func (s *Store) applyLogEntry(g *pagegraph.Graph, seq uint64, e LogEntry) {
	switch e.Kind {
	case EntryAddNode:
		id, ok := s.entryID(seq, e.NodeID)
		if !ok {
			return
		}
		if _, dup := g.NodeByID(id); dup {
			return
		}
		g.AddNode(&pagegraph.Node{ID: id, URL: e.URL, X: e.X, Y: e.Y})

	case EntryAddEdge:
		from, to, ok := s.entryEdge(g, seq, e)
		if ok {
			g.AddEdge(from, to, e.EdgeType)
		}

	case EntryRemoveEdge:
		from, to, ok := s.entryEdge(g, seq, e)
		if ok {
			g.RemoveEdge(from, to, e.EdgeType)
		}

	case EntryUpdateNodeTitle:
		if n := s.entryNode(g, seq, e.NodeID); n != nil {
			n.Title = e.Title
		}

	case EntryPinNode:
		if n := s.entryNode(g, seq, e.NodeID); n != nil {
			n.Pinned = e.Pinned
		}

	case EntryRemoveNode:
		id, ok := s.entryID(seq, e.NodeID)
		if !ok {
			return
		}
		if h, found := g.NodeByID(id); found {
			g.RemoveNode(h)
		}

	case EntryUpdateNodeURL:
		if n := s.entryNode(g, seq, e.NodeID); n != nil {
			n.URL = e.URL
		}

	case EntryClearGraph:
		g.ClearAll()

	default:
		s.warn("pagevault: skipping log entry of unknown kind", slog.Uint64("seq", seq), slog.String("kind", e.Kind.String()))
	}
}

func (s *Store) entryID(seq uint64, idStr string) (uuid.UUID, bool) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		s.warn("pagevault: skipping log entry with invalid node id", slog.Uint64("seq", seq), slog.String("id", idStr))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Store) entryNode(g *pagegraph.Graph, seq uint64, idStr string) *pagegraph.Node {
	id, ok := s.entryID(seq, idStr)
	if !ok {
		return nil
	}
	h, found := g.NodeByID(id)
	if !found {
		s.warn("pagevault: skipping log entry for unknown node", slog.Uint64("seq", seq), slog.String("id", idStr))
		return nil
	}
	return g.Node(h)
}

func (s *Store) entryEdge(g *pagegraph.Graph, seq uint64, e LogEntry) (from, to pagegraph.Handle, ok bool) {
	if !e.EdgeType.Valid() {
		s.warn("pagevault: skipping edge entry with invalid type", slog.Uint64("seq", seq), slog.Int("type", int(e.EdgeType)))
		return 0, 0, false
	}
	fromID, ok1 := s.entryID(seq, e.From)
	toID, ok2 := s.entryID(seq, e.To)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	fh, found1 := g.NodeByID(fromID)
	th, found2 := g.NodeByID(toID)
	if !found1 || !found2 {
		s.warn("pagevault: skipping edge entry with unknown endpoint", slog.Uint64("seq", seq))
		return 0, 0, false
	}
	return fh, th, true
}
