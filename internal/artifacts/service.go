package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"templatefill-backend/internal/shared/auth"
	"templatefill-backend/internal/shared/metrics"
	"templatefill-backend/internal/shared/storage/object"
	"templatefill-backend/internal/shared/telemetry"
)

// Service stores rendered artifacts and serves them back to their owner.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	Now   func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo, store object.ObjectStore) *Service {
	return &Service{Repo: repo, Store: store, Now: time.Now}
}

// Deliver stores the artifact bytes once per session revision. A repeated
// call for the same revision returns the existing record.
func (s *Service) Deliver(ctx context.Context, p auth.Principal, d Delivery) (Record, error) {
	if !p.Valid() || strings.TrimSpace(d.SessionID) == "" {
		return Record{}, ErrInvalidInput
	}
	art := d.Artifact
	if len(art.Bytes) == 0 {
		return Record{}, fmt.Errorf("%w: artifact has no bytes", ErrInvalidInput)
	}
	if d.Revision <= 0 {
		d.Revision = 1
	}

	existing, err := s.Repo.GetBySession(ctx, p.UserID, d.SessionID, d.Revision)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	key, size, mimeType, err := s.Store.Save(ctx, p.UserID, art.FileName, bytes.NewReader(art.Bytes))
	if err != nil {
		if errors.Is(err, object.ErrUnavailable) {
			return Record{}, fmt.Errorf("%w: %v", ErrStoreInconsistency, err)
		}
		return Record{}, fmt.Errorf("store artifact: %w", err)
	}
	if art.ContentType != "" {
		mimeType = art.ContentType
	}

	rec := Record{
		ID:         uuid.NewString(),
		UserID:     p.UserID,
		TemplateID: d.TemplateID,
		SessionID:  d.SessionID,
		Revision:   d.Revision,
		StorageKey: key,
		FileName:   art.FileName,
		MimeType:   mimeType,
		SizeBytes:  size,
		Fallback:   art.Fallback,
		CreatedAt:  s.now(),
	}

	if err := s.Repo.Create(ctx, rec); err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			metrics.StoreInconsistencies.WithLabelValues("deliver").Inc()
			telemetry.Error("artifact.orphan_object", map[string]any{
				"storage_key":  key,
				"session_id":   d.SessionID,
				"insert_error": err.Error(),
				"delete_error": delErr.Error(),
			})
			return Record{}, fmt.Errorf("%w: record insert failed (%v) and object %s was not removed: %v", ErrStoreInconsistency, err, key, delErr)
		}
		return Record{}, fmt.Errorf("record artifact: %w", err)
	}

	telemetry.Info("artifact.delivered", map[string]any{
		"artifact_id": rec.ID,
		"template_id": d.TemplateID,
		"session_id":  d.SessionID,
		"revision":    d.Revision,
		"user_id":     p.UserID,
		"fallback":    rec.Fallback,
		"size_bytes":  rec.SizeBytes,
	})
	return rec, nil
}

// Get returns an artifact by ID for its owner.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (Record, error) {
	if !p.Valid() || id == "" {
		return Record{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, p.UserID, id)
}

// List returns artifacts for a user ordered newest-first.
func (s *Service) List(ctx context.Context, p auth.Principal, limit, offset int) ([]Record, error) {
	if !p.Valid() {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, p.UserID, limit, offset)
}

// Open returns the record and a reader over its bytes.
func (s *Service) Open(ctx context.Context, p auth.Principal, id string) (Record, io.ReadCloser, error) {
	rec, err := s.Get(ctx, p, id)
	if err != nil {
		return Record{}, nil, err
	}
	rc, err := s.Store.Open(ctx, rec.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			metrics.StoreInconsistencies.WithLabelValues("artifact_open").Inc()
			return Record{}, nil, fmt.Errorf("%w: artifact %s has no stored bytes", ErrStoreInconsistency, rec.ID)
		}
		return Record{}, nil, err
	}
	return rec, rc, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
