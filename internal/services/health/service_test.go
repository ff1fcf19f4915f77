package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	localstore "templatefill-backend/internal/shared/storage/object/local"
)

func TestStatusReportsEachCheck(t *testing.T) {
	svc := NewService(map[string]CheckFunc{
		"database": DatabaseCheck(nil),
		"cache":    func(context.Context) error { return errors.New("redis ping failed") },
	})

	st := svc.Status(context.Background())
	assert.False(t, st.OK)
	assert.Equal(t, "ok", st.Checks["database"])
	assert.Equal(t, "redis ping failed", st.Checks["cache"])
}

func TestUnprovisionedStoreIsUnhealthyAndNotCreated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "objects")
	store := localstore.New(dir)
	svc := NewService(map[string]CheckFunc{"objectStore": StoreCheck(store)})

	assert.False(t, svc.Status(context.Background()).OK)
	assert.NoDirExists(t, dir)

	require.NoError(t, store.Provision(context.Background()))
	assert.True(t, svc.Status(context.Background()).OK)
}

func TestHealthEndpointStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fail := false
	svc := NewService(map[string]CheckFunc{
		"objectStore": func(context.Context) error {
			if fail {
				return errors.New("object store unavailable")
			}
			return nil
		},
	})
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"checks":{"objectStore":"ok"}}`, w.Body.String())

	fail = true
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
