package reload

import (
	"context"

	"github.com/grindlemire/graft"

	"go.trai.ch/basis/internal/adapters/logger"
	"go.trai.ch/basis/internal/core/ports"
)

// NodeID is the unique identifier for the reload broadcaster Graft node.
const NodeID graft.ID = "adapter.reload"

func init() {
	graft.Register(graft.Node[ports.Broadcaster]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Broadcaster, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewServer(log), nil
		},
	})
}
