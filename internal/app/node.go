package app

import (
	"context"

	"github.com/grindlemire/graft"

	"go.trai.ch/basis/internal/adapters/cas"     //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/adapters/config"  //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/adapters/fs"      //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/adapters/logger"  //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/adapters/media"   //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/adapters/notify"  //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/adapters/reload"  //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/adapters/watcher" //nolint:depguard // Wired in app layer
	"go.trai.ch/basis/internal/core/ports"
	"go.trai.ch/basis/internal/engine/pipeline"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components holds what the command line needs from the dependency graph.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			pipeline.NodeID,
			fs.NodeID,
			fs.HasherNodeID,
			cas.NodeID,
			logger.NodeID,
			watcher.NodeID,
			reload.NodeID,
			notify.NodeID,
			media.OpenerNodeID,
			media.ServerNodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: app, Logger: log}, nil
		},
	})
}

//nolint:cyclop // one lookup per dependency
func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	runner, err := graft.Dep[ports.TaskRunner](ctx)
	if err != nil {
		return nil, err
	}

	fileSystem, err := graft.Dep[ports.FileSystem](ctx)
	if err != nil {
		return nil, err
	}

	hasher, err := graft.Dep[ports.Hasher](ctx)
	if err != nil {
		return nil, err
	}

	store, err := graft.Dep[ports.BuildInfoStore](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}

	broadcaster, err := graft.Dep[ports.Broadcaster](ctx)
	if err != nil {
		return nil, err
	}

	notifier, err := graft.Dep[ports.Notifier](ctx)
	if err != nil {
		return nil, err
	}

	opener, err := graft.Dep[ports.AttachmentStoreOpener](ctx)
	if err != nil {
		return nil, err
	}

	server, err := graft.Dep[ports.MediaServer](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, runner, fileSystem, store, hasher, log, w, broadcaster, notifier, opener, server), nil
}
