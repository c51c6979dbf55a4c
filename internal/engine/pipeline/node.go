package pipeline

import (
	"context"

	"github.com/grindlemire/graft"

	"go.trai.ch/basis/internal/adapters/fs"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/basis/internal/adapters/stages" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/basis/internal/core/ports"
)

// NodeID is the unique identifier for the task runner Graft node.
const NodeID graft.ID = "engine.pipeline"

func init() {
	graft.Register(graft.Node[ports.TaskRunner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.NodeID, stages.NodeID},
		Run: func(ctx context.Context) (ports.TaskRunner, error) {
			fileSystem, err := graft.Dep[ports.FileSystem](ctx)
			if err != nil {
				return nil, err
			}
			factory, err := graft.Dep[ports.StageFactory](ctx)
			if err != nil {
				return nil, err
			}
			return NewRunner(fileSystem, factory), nil
		},
	})
}
