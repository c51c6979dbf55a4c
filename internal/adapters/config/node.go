package config

import (
	"context"

	"github.com/grindlemire/graft"

	"go.trai.ch/basis/internal/adapters/logger"
	"go.trai.ch/basis/internal/adapters/stages"
	"go.trai.ch/basis/internal/core/ports"
)

// NodeID is the unique identifier for the configuration loader Graft node.
const NodeID graft.ID = "adapter.config_loader"

func init() {
	graft.Register(graft.Node[ports.ConfigLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, stages.NodeID},
		Run: func(ctx context.Context) (ports.ConfigLoader, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			factory, err := graft.Dep[ports.StageFactory](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(log, factory), nil
		},
	})
}
