package fs

import (
	"context"

	"github.com/grindlemire/graft"

	"go.trai.ch/basis/internal/core/ports"
)

const (
	// NodeID is the graft node providing the pipeline file system.
	NodeID graft.ID = "adapter.fs"
	// WalkerNodeID is the graft node providing the directory walker.
	WalkerNodeID graft.ID = "adapter.fs.walker"
	// HasherNodeID is the graft node providing the content hasher.
	HasherNodeID graft.ID = "adapter.fs.hasher"
)

func init() {
	graft.Register(graft.Node[ports.FileSystem]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.FileSystem, error) {
			return NewFileSystem(), nil
		},
	})

	graft.Register(graft.Node[*Walker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Walker, error) {
			return NewWalker(), nil
		},
	})

	graft.Register(graft.Node[ports.Hasher]{
		ID:        HasherNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Hasher, error) {
			return NewHasher(), nil
		},
	})
}
