// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/basis/internal/adapters/cas"
	_ "go.trai.ch/basis/internal/adapters/config"
	_ "go.trai.ch/basis/internal/adapters/fs"
	_ "go.trai.ch/basis/internal/adapters/logger"
	_ "go.trai.ch/basis/internal/adapters/media"
	_ "go.trai.ch/basis/internal/adapters/notify"
	_ "go.trai.ch/basis/internal/adapters/reload"
	_ "go.trai.ch/basis/internal/adapters/shell"
	_ "go.trai.ch/basis/internal/adapters/stages"
	_ "go.trai.ch/basis/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/basis/internal/app"
	_ "go.trai.ch/basis/internal/engine/pipeline"
)
