package templates

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Template // id -> template
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Template)}
}

func (r *MemoryRepo) Create(ctx context.Context, t Template) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[t.ID] = clone(t)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, ownerID, id string) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.data[id]
	if !ok || t.CreatedBy != ownerID {
		return Template{}, ErrNotFound
	}
	return clone(t), nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Template, 0)
	for _, t := range r.data {
		if t.CreatedBy == ownerID && t.Status == StatusReady {
			out = append(out, clone(t))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, t Template) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.data[t.ID]
	if !ok || cur.CreatedBy != t.CreatedBy || cur.Status != StatusReady {
		return ErrNotFound
	}
	cur.Name = t.Name
	cur.Placeholders = append([]string(nil), t.Placeholders...)
	cur.UpdatedAt = t.UpdatedAt
	r.data[t.ID] = cur
	return nil
}

func (r *MemoryRepo) MarkOrphaned(ctx context.Context, ownerID, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.data[id]
	if !ok || cur.CreatedBy != ownerID {
		return ErrNotFound
	}
	cur.Status = StatusOrphaned
	cur.UpdatedAt = at
	r.data[id] = cur
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.data[id]
	if !ok || cur.CreatedBy != ownerID {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) ListOrphaned(ctx context.Context, limit int) ([]Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Template
	for _, t := range r.data {
		if t.Status == StatusOrphaned {
			out = append(out, clone(t))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(t Template) Template {
	t.Placeholders = append([]string(nil), t.Placeholders...)
	return t
}

var _ Repo = (*MemoryRepo)(nil)
