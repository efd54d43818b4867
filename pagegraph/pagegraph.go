// Package pagegraph holds an in-memory graph of page nodes connected by
// typed edges, plus the snapshot form it round-trips through.
//
// Nodes live in an arena indexed by Handle. Handles are transient: they are
// valid until the node is removed and are never persisted. The only identity
// that survives serialization is the node UUID.
package pagegraph

import (
	"iter"

	"github.com/google/uuid"
)

type EdgeType uint8

const (
	EdgeHyperlink EdgeType = iota + 1
	EdgeHistory
	EdgeUserGrouped
)

func (t EdgeType) String() string {
	switch t {
	case EdgeHyperlink:
		return "hyperlink"
	case EdgeHistory:
		return "history"
	case EdgeUserGrouped:
		return "user-grouped"
	default:
		return "invalid"
	}
}

func (t EdgeType) Valid() bool {
	return t >= EdgeHyperlink && t <= EdgeUserGrouped
}

type AddressKind uint8

const (
	AddressHTTP AddressKind = iota
	AddressFile
	AddressCustom
)

// Handle identifies a node within one Graph instance.
type Handle int32

const NoHandle Handle = -1

type Node struct {
	ID        uuid.UUID
	URL       string
	Title     string
	X, Y      float32
	Pinned    bool
	Address   AddressKind
	MimeHint  string
	History   History
	Thumbnail *Image
	Favicon   *Image
	Session   *Session
}

// History is a linear navigation history with a cursor into it.
type History struct {
	Entries []string `msgpack:"e,omitempty"`
	Index   int      `msgpack:"i,omitempty"`
}

// Image is an opaque encoded image: PNG bytes for thumbnails, raw RGBA for
// favicons.
type Image struct {
	Data   []byte `msgpack:"d"`
	Width  int    `msgpack:"w"`
	Height int    `msgpack:"h"`
}

// Session captures restorable per-page view state.
type Session struct {
	ScrollX   float32 `msgpack:"sx,omitempty"`
	ScrollY   float32 `msgpack:"sy,omitempty"`
	FormDraft string  `msgpack:"fd,omitempty"`
	History   History `msgpack:"h"`
}

type Edge struct {
	From, To Handle
	Type     EdgeType
}

type Graph struct {
	nodes []*Node
	free  []Handle
	byID  map[uuid.UUID]Handle
	edges []Edge
}

func New() *Graph {
	return &Graph{byID: make(map[uuid.UUID]Handle)}
}

// AddNode places n into the arena and returns its handle. A zero n.ID gets a
// fresh UUID assigned. Returns NoHandle if the ID is already present.
func (g *Graph) AddNode(n *Node) Handle {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if _, dup := g.byID[n.ID]; dup {
		return NoHandle
	}

	var h Handle
	if k := len(g.free); k > 0 {
		h = g.free[k-1]
		g.free = g.free[:k-1]
		g.nodes[h] = n
	} else {
		h = Handle(len(g.nodes))
		g.nodes = append(g.nodes, n)
	}
	g.byID[n.ID] = h
	return h
}

// Node returns the node at h, or nil if h does not refer to a live node.
func (g *Graph) Node(h Handle) *Node {
	if h < 0 || int(h) >= len(g.nodes) {
		return nil
	}
	return g.nodes[h]
}

func (g *Graph) NodeByID(id uuid.UUID) (Handle, bool) {
	h, ok := g.byID[id]
	return h, ok
}

// RemoveNode frees the node and drops every edge incident to it.
func (g *Graph) RemoveNode(h Handle) bool {
	n := g.Node(h)
	if n == nil {
		return false
	}

	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.From != h && e.To != h {
			kept = append(kept, e)
		}
	}
	g.edges = kept

	delete(g.byID, n.ID)
	g.nodes[h] = nil
	g.free = append(g.free, h)
	return true
}

// AddEdge links two live nodes. Duplicate (from, to, type) triples and edges
// with a dead endpoint or invalid type are rejected.
func (g *Graph) AddEdge(from, to Handle, t EdgeType) bool {
	if !t.Valid() || g.Node(from) == nil || g.Node(to) == nil {
		return false
	}
	if g.HasEdge(from, to, t) {
		return false
	}
	g.edges = append(g.edges, Edge{From: from, To: to, Type: t})
	return true
}

func (g *Graph) RemoveEdge(from, to Handle, t EdgeType) bool {
	for i, e := range g.edges {
		if e.From == from && e.To == to && e.Type == t {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return true
		}
	}
	return false
}

func (g *Graph) HasEdge(from, to Handle, t EdgeType) bool {
	for _, e := range g.edges {
		if e.From == from && e.To == to && e.Type == t {
			return true
		}
	}
	return false
}

// ClearAll removes every node and edge, invalidating all handles.
func (g *Graph) ClearAll() {
	g.nodes = g.nodes[:0]
	g.free = g.free[:0]
	g.edges = g.edges[:0]
	clear(g.byID)
}

func (g *Graph) NodeCount() int {
	return len(g.nodes) - len(g.free)
}

func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Nodes iterates over live nodes in arena order.
func (g *Graph) Nodes() iter.Seq2[Handle, *Node] {
	return func(yield func(Handle, *Node) bool) {
		for i, n := range g.nodes {
			if n == nil {
				continue
			}
			if !yield(Handle(i), n) {
				return
			}
		}
	}
}

// Edges iterates over edges in insertion order.
func (g *Graph) Edges() iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		for _, e := range g.edges {
			if !yield(e) {
				return
			}
		}
	}
}
