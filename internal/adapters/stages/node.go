package stages

import (
	"context"

	"github.com/grindlemire/graft"

	"go.trai.ch/basis/internal/adapters/fs"
	"go.trai.ch/basis/internal/adapters/shell"
	"go.trai.ch/basis/internal/core/ports"
)

// NodeID is the graft node providing the stage factory.
const NodeID graft.ID = "adapter.stages"

func init() {
	graft.Register(graft.Node[ports.StageFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.NodeID, shell.NodeID},
		Run: func(ctx context.Context) (ports.StageFactory, error) {
			fileSystem, err := graft.Dep[ports.FileSystem](ctx)
			if err != nil {
				return nil, err
			}
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			return NewRegistry(fileSystem, executor), nil
		},
	})
}
