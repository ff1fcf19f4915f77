package health

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"templatefill-backend/internal/shared/storage/db"
	"templatefill-backend/internal/shared/storage/object"
	"templatefill-backend/internal/shared/telemetry"
)

const checkTimeout = 3 * time.Second

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Status is the health payload.
type Status struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

// Service encapsulates health-related checks.
type Service struct {
	checks map[string]CheckFunc
}

// NewService constructs a health service over the given probes.
func NewService(checks map[string]CheckFunc) *Service {
	if checks == nil {
		checks = map[string]CheckFunc{}
	}
	return &Service{checks: checks}
}

// DatabaseCheck verifies the provisioned schema. A nil database means the
// in-memory repositories are in use.
func DatabaseCheck(database *sql.DB) CheckFunc {
	return func(ctx context.Context) error {
		return db.CheckSchema(ctx, database)
	}
}

// StoreCheck verifies the object store is reachable.
func StoreCheck(store object.ObjectStore) CheckFunc {
	return store.Check
}

// Status runs every probe and reports ok only when all of them pass. It never
// creates missing infrastructure.
func (s *Service) Status(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := Status{OK: true, Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			out.OK = false
			out.Checks[name] = err.Error()
			telemetry.Warn("health.check_failed", map[string]any{"check": name, "error": err.Error()})
			continue
		}
		out.Checks[name] = "ok"
	}
	return out
}
