package templates

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const templateColumns = `id, name, created_by, placeholders, storage_key, file_name, mime_type, size_bytes, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new template.
func (r *PGRepo) Create(ctx context.Context, t Template) error {
	const query = `
INSERT INTO templates (
    id,
    name,
    created_by,
    placeholders,
    storage_key,
    file_name,
    mime_type,
    size_bytes,
    status,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10, $11)`

	placeholders, err := encodePlaceholders(t.Placeholders)
	if err != nil {
		return err
	}
	status := t.Status
	if status == "" {
		status = StatusReady
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		t.ID,
		t.Name,
		t.CreatedBy,
		placeholders,
		t.StorageKey,
		t.FileName,
		t.MimeType,
		t.SizeBytes,
		string(status),
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

// GetByID fetches a template by ID for its owner.
func (r *PGRepo) GetByID(ctx context.Context, ownerID, id string) (Template, error) {
	query := `
SELECT ` + templateColumns + `
FROM templates
WHERE created_by = $1 AND id = $2
LIMIT 1`
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, ErrNotFound
		}
		return Template{}, err
	}
	return t, nil
}

// ListByOwner lists ready templates ordered newest-first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Template, error) {
	query := `
SELECT ` + templateColumns + `
FROM templates
WHERE created_by = $1 AND status = 'ready'
ORDER BY created_at DESC`
	return r.list(ctx, query, ownerID)
}

// Update stores a new name and placeholder list for a ready template.
func (r *PGRepo) Update(ctx context.Context, t Template) error {
	const query = `
UPDATE templates
SET name = $1, placeholders = $2::jsonb, updated_at = $3
WHERE created_by = $4 AND id = $5 AND status = 'ready'`
	placeholders, err := encodePlaceholders(t.Placeholders)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, t.Name, placeholders, t.UpdatedAt, t.CreatedBy, t.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// MarkOrphaned hides a template from listings ahead of byte removal.
func (r *PGRepo) MarkOrphaned(ctx context.Context, ownerID, id string, at time.Time) error {
	const query = `
UPDATE templates
SET status = 'orphaned', updated_at = $1
WHERE created_by = $2 AND id = $3`
	res, err := r.DB.ExecContext(ctx, query, at, ownerID, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes the template row.
func (r *PGRepo) Delete(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM templates WHERE created_by = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListOrphaned returns orphaned rows, oldest first.
func (r *PGRepo) ListOrphaned(ctx context.Context, limit int) ([]Template, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
SELECT ` + templateColumns + `
FROM templates
WHERE status = 'orphaned'
ORDER BY updated_at ASC
LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Template, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTemplate(row rowScanner) (Template, error) {
	var t Template
	var placeholders []byte
	var status string
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.CreatedBy,
		&placeholders,
		&t.StorageKey,
		&t.FileName,
		&t.MimeType,
		&t.SizeBytes,
		&status,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return Template{}, err
	}
	t.Status = Status(status)
	if len(placeholders) > 0 {
		if err := json.Unmarshal(placeholders, &t.Placeholders); err != nil {
			return Template{}, fmt.Errorf("decode placeholders for %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func encodePlaceholders(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	b, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
