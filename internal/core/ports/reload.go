package ports

import (
	"context"

	"go.trai.ch/basis/internal/core/domain"
)

// Broadcaster pushes reload events to connected browser sessions.
//
//go:generate mockgen -source=reload.go -destination=mocks/mock_reload.go -package=mocks
type Broadcaster interface {
	// Serve accepts browser sessions until ctx is canceled.
	Serve(ctx context.Context, settings domain.ReloadSettings) error

	// Broadcast sends the event to every session. Without sessions it does nothing.
	Broadcast(ctx context.Context, event domain.ReloadEvent) error

	// Sessions returns the number of connected sessions.
	Sessions() int
}
