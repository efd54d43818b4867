package pagevault

import (
	"fmt"

	"github.com/mosaicbrowser/pagevault/pagegraph"
)

// SaveNamedSnapshot stores a full copy of the graph under a user-chosen name,
// independent of the working snapshot and the mutation log.
func (s *Store) SaveNamedSnapshot(name string, g *pagegraph.Graph) error {
	if s.closed {
		return ErrClosed
	}
	if err := validateName(name); err != nil {
		return err
	}
	return s.writeSnapshot(namedPrefix+name, g)
}

// LoadNamedSnapshot returns the graph stored under name, or nil if no such
// snapshot exists.
func (s *Store) LoadNamedSnapshot(name string) (*pagegraph.Graph, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	data, err := s.tables.get(snapshotsBucket, namedPrefix+name)
	if err != nil || data == nil {
		return nil, err
	}
	var snap pagegraph.GraphSnapshot
	if err := decodeMsgpack(data, &snap); err != nil {
		return nil, err
	}
	return pagegraph.FromSnapshot(&snap), nil
}

// ListNamedSnapshots returns the saved snapshot names in key order.
func (s *Store) ListNamedSnapshots() ([]string, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.tables.listKeys(snapshotsBucket, namedPrefix)
}

func (s *Store) DeleteNamedSnapshot(name string) error {
	if s.closed {
		return ErrClosed
	}
	if err := validateName(name); err != nil {
		return err
	}
	return s.tables.delete(snapshotsBucket, namedPrefix+name)
}

// SaveTileLayout stores the default tile layout document. The bytes are
// opaque to the store; the layout engine owns their schema.
func (s *Store) SaveTileLayout(layout []byte) error {
	if s.closed {
		return ErrClosed
	}
	return s.tables.put(tileLayoutBucket, latestKey, layout)
}

// LoadTileLayout returns the default tile layout, or nil if none was saved.
func (s *Store) LoadTileLayout() ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.tables.get(tileLayoutBucket, latestKey)
}

// SaveWorkspaceLayout stores a layout document under a workspace name.
func (s *Store) SaveWorkspaceLayout(name string, layout []byte) error {
	if s.closed {
		return ErrClosed
	}
	if err := validateName(name); err != nil {
		return err
	}
	return s.tables.put(tileLayoutBucket, workspacePrefix+name, layout)
}

// LoadWorkspaceLayout returns the layout saved for the workspace, or nil if
// none was saved.
func (s *Store) LoadWorkspaceLayout(name string) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	return s.tables.get(tileLayoutBucket, workspacePrefix+name)
}

// ListWorkspaceLayouts returns the workspace names with saved layouts in key
// order.
func (s *Store) ListWorkspaceLayouts() ([]string, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.tables.listKeys(tileLayoutBucket, workspacePrefix)
}

func (s *Store) DeleteWorkspaceLayout(name string) error {
	if s.closed {
		return ErrClosed
	}
	if err := validateName(name); err != nil {
		return err
	}
	return s.tables.delete(tileLayoutBucket, workspacePrefix+name)
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("pagevault: name must not be empty")
	}
	if name == latestKey {
		return fmt.Errorf("pagevault: name %q is reserved", latestKey)
	}
	return nil
}
