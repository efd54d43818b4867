package pagegraph

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// GraphSnapshot is the serializable whole-graph value. Node identity on the
// wire is the canonical UUID string; handles never leave the process.
type GraphSnapshot struct {
	Nodes         []PersistedNode `msgpack:"n,omitempty"`
	Edges         []PersistedEdge `msgpack:"e,omitempty"`
	TimestampSecs uint64          `msgpack:"ts,omitempty"`
}

type PersistedNode struct {
	NodeID    string      `msgpack:"id"`
	URL       string      `msgpack:"u"`
	Title     string      `msgpack:"t,omitempty"`
	PositionX float32     `msgpack:"x,omitempty"`
	PositionY float32     `msgpack:"y,omitempty"`
	IsPinned  bool        `msgpack:"p,omitempty"`
	Address   AddressKind `msgpack:"a,omitempty"`
	MimeHint  string      `msgpack:"m,omitempty"`
	History   History     `msgpack:"h"`
	Thumbnail *Image      `msgpack:"tn,omitempty"`
	Favicon   *Image      `msgpack:"fv,omitempty"`
	Session   *Session    `msgpack:"s,omitempty"`
}

type PersistedEdge struct {
	FromNodeID string   `msgpack:"f"`
	ToNodeID   string   `msgpack:"o"`
	EdgeType   EdgeType `msgpack:"e"`
}

// ToSnapshot captures the full graph state. Nodes and edges are emitted in a
// deterministic order so that equal graphs produce equal snapshots.
func (g *Graph) ToSnapshot() *GraphSnapshot {
	snap := &GraphSnapshot{}
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		snap.Nodes = append(snap.Nodes, PersistedNode{
			NodeID:    n.ID.String(),
			URL:       n.URL,
			Title:     n.Title,
			PositionX: n.X,
			PositionY: n.Y,
			IsPinned:  n.Pinned,
			Address:   n.Address,
			MimeHint:  n.MimeHint,
			History:   n.History,
			Thumbnail: n.Thumbnail,
			Favicon:   n.Favicon,
			Session:   n.Session,
		})
	}
	slices.SortFunc(snap.Nodes, func(a, b PersistedNode) int {
		return strings.Compare(a.NodeID, b.NodeID)
	})

	for _, e := range g.edges {
		from, to := g.Node(e.From), g.Node(e.To)
		if from == nil || to == nil {
			continue
		}
		snap.Edges = append(snap.Edges, PersistedEdge{
			FromNodeID: from.ID.String(),
			ToNodeID:   to.ID.String(),
			EdgeType:   e.Type,
		})
	}
	slices.SortFunc(snap.Edges, comparePersistedEdges)

	return snap
}

func comparePersistedEdges(a, b PersistedEdge) int {
	if c := strings.Compare(a.FromNodeID, b.FromNodeID); c != 0 {
		return c
	}
	if c := strings.Compare(a.ToNodeID, b.ToNodeID); c != 0 {
		return c
	}
	return int(a.EdgeType) - int(b.EdgeType)
}

// FromSnapshot rebuilds a graph. Entries with unparsable or duplicate node
// IDs, and edges referring to unknown nodes, are skipped.
func FromSnapshot(snap *GraphSnapshot) *Graph {
	g := New()
	if snap == nil {
		return g
	}
	for i := range snap.Nodes {
		pn := &snap.Nodes[i]
		id, err := uuid.Parse(pn.NodeID)
		if err != nil {
			continue
		}
		g.AddNode(&Node{
			ID:        id,
			URL:       pn.URL,
			Title:     pn.Title,
			X:         pn.PositionX,
			Y:         pn.PositionY,
			Pinned:    pn.IsPinned,
			Address:   pn.Address,
			MimeHint:  pn.MimeHint,
			History:   pn.History,
			Thumbnail: pn.Thumbnail,
			Favicon:   pn.Favicon,
			Session:   pn.Session,
		})
	}
	for _, pe := range snap.Edges {
		fromID, err := uuid.Parse(pe.FromNodeID)
		if err != nil {
			continue
		}
		toID, err := uuid.Parse(pe.ToNodeID)
		if err != nil {
			continue
		}
		from, ok := g.NodeByID(fromID)
		if !ok {
			continue
		}
		to, ok := g.NodeByID(toID)
		if !ok {
			continue
		}
		g.AddEdge(from, to, pe.EdgeType)
	}
	return g
}
