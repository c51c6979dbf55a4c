package ports

import (
	"context"

	"go.trai.ch/basis/internal/core/domain"
)

//go:generate mockgen -source=media.go -destination=mocks/mock_media.go -package=mocks

// AttachmentStore persists the media attachments of the site.
type AttachmentStore interface {
	// Get returns the attachment with the given id, or nil, nil when absent.
	Get(ctx context.Context, id int64) (*domain.Attachment, error)

	// Add stores the attachment and returns its id.
	Add(ctx context.Context, a domain.Attachment) (int64, error)

	// List returns every attachment ordered by id.
	List(ctx context.Context) ([]domain.Attachment, error)

	// Close releases the database.
	Close() error
}

// AttachmentStoreOpener opens the attachment database at a path.
type AttachmentStoreOpener interface {
	Open(ctx context.Context, path string) (AttachmentStore, error)
}

// MediaServer serves the attachment endpoint.
type MediaServer interface {
	// Serve answers requests on addr until ctx is canceled.
	Serve(ctx context.Context, addr string, store AttachmentStore, mimes map[string]string) error
}
