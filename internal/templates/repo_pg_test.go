package templates

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateEncodesPlaceholders(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	tpl := Template{
		ID:           "tpl-1",
		Name:         "NDA Agreement",
		CreatedBy:    "guest:alice",
		Placeholders: []string{"full_name", "signature"},
		StorageKey:   "abc/123_nda.pdf",
		FileName:     "nda.pdf",
		MimeType:     "application/pdf",
		SizeBytes:    42,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec("INSERT INTO templates").
		WithArgs(
			tpl.ID,
			tpl.Name,
			tpl.CreatedBy,
			`["full_name","signature"]`,
			tpl.StorageKey,
			tpl.FileName,
			tpl.MimeType,
			tpl.SizeBytes,
			"ready",
			now,
			now,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), tpl); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDDecodesRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "name", "created_by", "placeholders", "storage_key", "file_name", "mime_type", "size_bytes", "status", "created_at", "updated_at"}).
		AddRow("tpl-1", "NDA", "guest:alice", []byte(`["a","b"]`), "k", "nda.pdf", "application/pdf", int64(7), "orphaned", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM templates")).
		WithArgs("guest:alice", "tpl-1").
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "guest:alice", "tpl-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusOrphaned {
		t.Fatalf("expected orphaned status, got %q", got.Status)
	}
	if len(got.Placeholders) != 2 || got.Placeholders[1] != "b" {
		t.Fatalf("unexpected placeholders %v", got.Placeholders)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM templates").
		WithArgs("guest:bob", "tpl-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "guest:bob", "tpl-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListOnlyReady(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE created_by = $1 AND status = 'ready'")).
		WithArgs("guest:alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_by", "placeholders", "storage_key", "file_name", "mime_type", "size_bytes", "status", "created_at", "updated_at"}))

	got, err := repo.ListByOwner(context.Background(), "guest:alice")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", got)
	}
}

func TestPGRepoMarkOrphanedAndDelete(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE templates").
		WithArgs(at, "guest:alice", "tpl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM templates").
		WithArgs("guest:alice", "tpl-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkOrphaned(context.Background(), "guest:alice", "tpl-1", at); err != nil {
		t.Fatalf("MarkOrphaned: %v", err)
	}
	if err := repo.Delete(context.Background(), "guest:alice", "tpl-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for zero rows, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateOnlyReady(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("AND status = 'ready'")).
		WithArgs("Renamed", `["x"]`, at, "guest:alice", "tpl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), Template{
		ID:           "tpl-1",
		CreatedBy:    "guest:alice",
		Name:         "Renamed",
		Placeholders: []string{"x"},
		UpdatedAt:    at,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
