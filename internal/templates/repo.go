package templates

import (
	"context"
	"time"
)

// Repo defines persistence operations for template records.
type Repo interface {
	Create(ctx context.Context, t Template) error
	// GetByID returns the owner's template in any status.
	GetByID(ctx context.Context, ownerID, id string) (Template, error)
	// ListByOwner returns ready templates, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Template, error)
	Update(ctx context.Context, t Template) error
	MarkOrphaned(ctx context.Context, ownerID, id string, at time.Time) error
	Delete(ctx context.Context, ownerID, id string) error
	// ListOrphaned returns orphaned templates of every owner, oldest first.
	ListOrphaned(ctx context.Context, limit int) ([]Template, error)
}
