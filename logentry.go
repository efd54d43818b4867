package pagevault

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mosaicbrowser/pagevault/pagegraph"
)

// EntryKind discriminates the LogEntry union.
type EntryKind uint8

const (
	EntryAddNode EntryKind = iota + 1
	EntryAddEdge
	EntryRemoveEdge
	EntryUpdateNodeTitle
	EntryPinNode
	EntryRemoveNode
	EntryUpdateNodeURL
	EntryClearGraph
)

func (k EntryKind) String() string {
	switch k {
	case EntryAddNode:
		return "add-node"
	case EntryAddEdge:
		return "add-edge"
	case EntryRemoveEdge:
		return "remove-edge"
	case EntryUpdateNodeTitle:
		return "update-node-title"
	case EntryPinNode:
		return "pin-node"
	case EntryRemoveNode:
		return "remove-node"
	case EntryUpdateNodeURL:
		return "update-node-url"
	case EntryClearGraph:
		return "clear-graph"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k EntryKind) valid() bool {
	return k >= EntryAddNode && k <= EntryClearGraph
}

// LogEntry is one durable graph mutation. Only the fields relevant to Kind
// are set; node references are canonical UUID strings.
type LogEntry struct {
	Kind     EntryKind          `msgpack:"k"`
	NodeID   string             `msgpack:"n,omitempty"`
	URL      string             `msgpack:"u,omitempty"`
	Title    string             `msgpack:"t,omitempty"`
	X        float32            `msgpack:"x,omitempty"`
	Y        float32            `msgpack:"y,omitempty"`
	Pinned   bool               `msgpack:"p,omitempty"`
	From     string             `msgpack:"f,omitempty"`
	To       string             `msgpack:"o,omitempty"`
	EdgeType pagegraph.EdgeType `msgpack:"e,omitempty"`
}

func (e LogEntry) validate() error {
	if !e.Kind.valid() {
		return fmt.Errorf("pagevault: invalid log entry kind %d", e.Kind)
	}
	if (e.Kind == EntryAddEdge || e.Kind == EntryRemoveEdge) && !e.EdgeType.Valid() {
		return fmt.Errorf("pagevault: invalid edge type %d", e.EdgeType)
	}
	return nil
}

func AddNode(id uuid.UUID, url string, x, y float32) LogEntry {
	return LogEntry{Kind: EntryAddNode, NodeID: id.String(), URL: url, X: x, Y: y}
}

func AddEdge(from, to uuid.UUID, t pagegraph.EdgeType) LogEntry {
	return LogEntry{Kind: EntryAddEdge, From: from.String(), To: to.String(), EdgeType: t}
}

func RemoveEdge(from, to uuid.UUID, t pagegraph.EdgeType) LogEntry {
	return LogEntry{Kind: EntryRemoveEdge, From: from.String(), To: to.String(), EdgeType: t}
}

func UpdateNodeTitle(id uuid.UUID, title string) LogEntry {
	return LogEntry{Kind: EntryUpdateNodeTitle, NodeID: id.String(), Title: title}
}

func PinNode(id uuid.UUID, pinned bool) LogEntry {
	return LogEntry{Kind: EntryPinNode, NodeID: id.String(), Pinned: pinned}
}

func RemoveNode(id uuid.UUID) LogEntry {
	return LogEntry{Kind: EntryRemoveNode, NodeID: id.String()}
}

func UpdateNodeURL(id uuid.UUID, url string) LogEntry {
	return LogEntry{Kind: EntryUpdateNodeURL, NodeID: id.String(), URL: url}
}

func ClearGraph() LogEntry {
	return LogEntry{Kind: EntryClearGraph}
}
