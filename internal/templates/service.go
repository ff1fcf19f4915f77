package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"templatefill-backend/internal/extract"
	"templatefill-backend/internal/shared/auth"
	"templatefill-backend/internal/shared/metrics"
	"templatefill-backend/internal/shared/storage/object"
	"templatefill-backend/internal/shared/telemetry"
)

// Service contains business logic for templates.
type Service struct {
	Store     object.ObjectStore
	Repo      Repo
	Extractor extract.Extractor
	// Validate checks bytes whose placeholders were supplied by the caller.
	Validate func(ctx context.Context, data []byte) error
	Now      func() time.Time
}

// NewService constructs a Service.
func NewService(store object.ObjectStore, repo Repo, extractor extract.Extractor) *Service {
	return &Service{Store: store, Repo: repo, Extractor: extractor, Validate: extract.Validate, Now: time.Now}
}

// List returns the principal's ready templates, newest first.
func (s *Service) List(ctx context.Context, p auth.Principal) ([]Template, error) {
	if !p.Valid() {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByOwner(ctx, p.UserID)
}

// Get returns a ready template owned by the principal.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (Template, error) {
	if !p.Valid() || strings.TrimSpace(id) == "" {
		return Template{}, ErrNotFound
	}
	t, err := s.Repo.GetByID(ctx, p.UserID, id)
	if err != nil {
		return Template{}, err
	}
	if t.Status != StatusReady {
		return Template{}, ErrNotFound
	}
	return t, nil
}

// Analyze detects placeholders without storing anything.
func (s *Service) Analyze(ctx context.Context, data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	return s.Extractor.Extract(ctx, data)
}

// Create stores the bytes and records the template. When the record cannot be
// written the stored object is removed again; if that also fails no record
// exists and the orphan key is reported as a store inconsistency.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (Template, error) {
	if !p.Valid() {
		return Template{}, ErrInvalidInput
	}
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		return Template{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if len(in.Data) == 0 {
		return Template{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}

	placeholders := in.Placeholders
	if placeholders == nil {
		found, err := s.Extractor.Extract(ctx, in.Data)
		if err != nil {
			metrics.TemplateCreates.WithLabelValues("rejected").Inc()
			return Template{}, err
		}
		placeholders = found
	} else {
		if err := validatePlaceholders(placeholders); err != nil {
			metrics.TemplateCreates.WithLabelValues("rejected").Inc()
			return Template{}, err
		}
		if err := s.Validate(ctx, in.Data); err != nil {
			metrics.TemplateCreates.WithLabelValues("rejected").Inc()
			return Template{}, err
		}
	}

	key, size, mimeType, err := s.Store.Save(ctx, p.UserID, fileName, bytes.NewReader(in.Data))
	if err != nil {
		metrics.TemplateCreates.WithLabelValues("store_failed").Inc()
		if errors.Is(err, object.ErrUnavailable) {
			return Template{}, fmt.Errorf("%w: %v", ErrStoreInconsistency, err)
		}
		return Template{}, fmt.Errorf("store template bytes: %w", err)
	}

	now := s.now()
	t := Template{
		ID:           uuid.NewString(),
		Name:         name,
		CreatedBy:    p.UserID,
		Placeholders: placeholders,
		StorageKey:   key,
		FileName:     fileName,
		MimeType:     mimeType,
		SizeBytes:    size,
		Status:       StatusReady,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Repo.Create(ctx, t); err != nil {
		// The caller's context may be what failed the insert.
		cleanupCtx := context.WithoutCancel(ctx)
		if delErr := s.Store.Delete(cleanupCtx, key); delErr != nil {
			metrics.TemplateCreates.WithLabelValues("inconsistent").Inc()
			metrics.StoreInconsistencies.WithLabelValues("create").Inc()
			telemetry.Error("template.orphan_object", map[string]any{
				"storage_key":  key,
				"user_id":      p.UserID,
				"insert_error": err.Error(),
				"delete_error": delErr.Error(),
			})
			return Template{}, fmt.Errorf("%w: record insert failed (%v) and object %s was not removed: %v", ErrStoreInconsistency, err, key, delErr)
		}
		metrics.TemplateCreates.WithLabelValues("rolled_back").Inc()
		telemetry.Warn("template.create_rolled_back", map[string]any{
			"storage_key": key,
			"user_id":     p.UserID,
			"error":       err.Error(),
		})
		return Template{}, fmt.Errorf("record template: %w", err)
	}

	metrics.TemplateCreates.WithLabelValues("ok").Inc()
	telemetry.Info("template.created", map[string]any{
		"template_id":  t.ID,
		"user_id":      p.UserID,
		"placeholders": len(t.Placeholders),
		"size_bytes":   t.SizeBytes,
	})
	return t, nil
}

// Update renames a template and/or replaces its placeholder list.
func (s *Service) Update(ctx context.Context, p auth.Principal, id string, patch Patch) (Template, error) {
	t, err := s.Get(ctx, p, id)
	if err != nil {
		return Template{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return Template{}, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		t.Name = name
	}
	if patch.Placeholders != nil {
		if err := validatePlaceholders(patch.Placeholders); err != nil {
			return Template{}, err
		}
		t.Placeholders = append([]string(nil), patch.Placeholders...)
	}
	t.UpdatedAt = s.now()

	if err := s.Repo.Update(ctx, t); err != nil {
		return Template{}, err
	}
	return t, nil
}

// Delete removes the record and its bytes. The record is hidden first so a
// failed byte removal never leaves a listed template without a payload.
// It reports false when there was nothing to delete.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) (bool, error) {
	if !p.Valid() || strings.TrimSpace(id) == "" {
		return false, nil
	}
	t, err := s.Repo.GetByID(ctx, p.UserID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if t.Status != StatusOrphaned {
		if err := s.Repo.MarkOrphaned(ctx, p.UserID, id, s.now()); err != nil {
			return false, err
		}
	}
	if err := s.purge(ctx, t, "delete"); err != nil {
		return false, err
	}
	telemetry.Info("template.deleted", map[string]any{"template_id": id, "user_id": p.UserID})
	return true, nil
}

// Sweep retries cleanup of templates left orphaned by failed deletes.
func (s *Service) Sweep(ctx context.Context, limit int) (int, error) {
	orphans, err := s.Repo.ListOrphaned(ctx, limit)
	if err != nil {
		return 0, err
	}
	cleaned := 0
	var errs []error
	for _, t := range orphans {
		if err := s.purge(ctx, t, "sweep"); err != nil {
			errs = append(errs, err)
			continue
		}
		cleaned++
	}
	if cleaned > 0 || len(errs) > 0 {
		telemetry.Info("template.sweep", map[string]any{"cleaned": cleaned, "failed": len(errs)})
	}
	return cleaned, errors.Join(errs...)
}

// Source opens the stored bytes of a ready template.
func (s *Service) Source(ctx context.Context, p auth.Principal, id string) (Template, io.ReadCloser, error) {
	t, err := s.Get(ctx, p, id)
	if err != nil {
		return Template{}, nil, err
	}
	rc, err := s.Store.Open(ctx, t.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) || errors.Is(err, object.ErrUnavailable) {
			metrics.StoreInconsistencies.WithLabelValues("source").Inc()
			telemetry.Error("template.source_missing", map[string]any{
				"template_id": t.ID,
				"storage_key": t.StorageKey,
				"error":       err.Error(),
			})
			return Template{}, nil, fmt.Errorf("%w: template %s has no stored bytes: %v", ErrStoreInconsistency, t.ID, err)
		}
		return Template{}, nil, err
	}
	return t, rc, nil
}

func (s *Service) purge(ctx context.Context, t Template, op string) error {
	if err := s.Store.Delete(ctx, t.StorageKey); err != nil && !errors.Is(err, object.ErrNotFound) {
		metrics.StoreInconsistencies.WithLabelValues(op).Inc()
		telemetry.Error("template.orphaned", map[string]any{
			"template_id": t.ID,
			"storage_key": t.StorageKey,
			"error":       err.Error(),
		})
		return fmt.Errorf("%w: template %s bytes not removed: %v", ErrStoreInconsistency, t.ID, err)
	}
	if err := s.Repo.Delete(ctx, t.CreatedBy, t.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func validatePlaceholders(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if !extract.ValidName(name) {
			return fmt.Errorf("%w: %q is not a valid field name", ErrInvalidInput, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidInput, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
