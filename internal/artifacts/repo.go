package artifacts

import "context"

// Repo defines persistence operations for delivered artifacts.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	// GetByID returns ErrForbidden when the record belongs to another user.
	GetByID(ctx context.Context, userID, id string) (Record, error)
	GetBySession(ctx context.Context, userID, sessionID string, revision int) (Record, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error)
}
