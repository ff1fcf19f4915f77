package artifacts

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts an artifact record.
func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO artifacts (
    id, user_id, template_id, session_id, revision, storage_key, file_name, mime_type, size_bytes, fallback, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.TemplateID,
		rec.SessionID,
		rec.Revision,
		rec.StorageKey,
		rec.FileName,
		rec.MimeType,
		rec.SizeBytes,
		rec.Fallback,
		rec.CreatedAt,
	)
	return err
}

// GetByID returns an artifact by ID, enforcing ownership.
func (r *PGRepo) GetByID(ctx context.Context, userID, id string) (Record, error) {
	const query = `
SELECT id, user_id, template_id, session_id, revision, storage_key, file_name, mime_type, size_bytes, fallback, created_at
FROM artifacts
WHERE id = $1
LIMIT 1`
	var rec Record
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TemplateID,
		&rec.SessionID,
		&rec.Revision,
		&rec.StorageKey,
		&rec.FileName,
		&rec.MimeType,
		&rec.SizeBytes,
		&rec.Fallback,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	if rec.UserID != userID {
		return Record{}, ErrForbidden
	}
	return rec, nil
}

// GetBySession returns the artifact already delivered for a session revision.
func (r *PGRepo) GetBySession(ctx context.Context, userID, sessionID string, revision int) (Record, error) {
	const query = `
SELECT id, user_id, template_id, session_id, revision, storage_key, file_name, mime_type, size_bytes, fallback, created_at
FROM artifacts
WHERE user_id = $1 AND session_id = $2 AND revision = $3
LIMIT 1`
	var rec Record
	err := r.DB.QueryRowContext(ctx, query, userID, sessionID, revision).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TemplateID,
		&rec.SessionID,
		&rec.Revision,
		&rec.StorageKey,
		&rec.FileName,
		&rec.MimeType,
		&rec.SizeBytes,
		&rec.Fallback,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// ListByUser lists artifacts ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, user_id, template_id, session_id, revision, storage_key, file_name, mime_type, size_bytes, fallback, created_at
FROM artifacts
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.TemplateID,
			&rec.SessionID,
			&rec.Revision,
			&rec.StorageKey,
			&rec.FileName,
			&rec.MimeType,
			&rec.SizeBytes,
			&rec.Fallback,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
