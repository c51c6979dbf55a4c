package media

import (
	"context"

	"github.com/grindlemire/graft"

	"go.trai.ch/basis/internal/adapters/logger"
	"go.trai.ch/basis/internal/core/ports"
)

const (
	// OpenerNodeID is the graft node opening attachment databases.
	OpenerNodeID graft.ID = "adapter.media.opener"
	// ServerNodeID is the graft node serving the attachment endpoint.
	ServerNodeID graft.ID = "adapter.media.server"
)

func init() {
	graft.Register(graft.Node[ports.AttachmentStoreOpener]{
		ID:        OpenerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.AttachmentStoreOpener, error) {
			return NewOpener(), nil
		},
	})

	graft.Register(graft.Node[ports.MediaServer]{
		ID:        ServerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.MediaServer, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewServer(log), nil
		},
	})
}
