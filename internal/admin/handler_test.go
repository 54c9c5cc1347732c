// AngelaMos | 2026
// handler_test.go

package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tenant-backend/internal/admin"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store/memstore"
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
}

func passthrough(next http.Handler) http.Handler { return next }

func TestReconcile_ClearsLedger(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	failures := mem.Failures()
	disp := event.NewDispatcher(failures, nil)
	t.Cleanup(func() { _ = disp.Shutdown(context.Background()) })

	fail := true
	disp.Register(event.CompanyCreated, "provision-contact", func(context.Context, event.Event) error {
		if fail {
			return errors.New("mail server down")
		}
		return nil
	})

	disp.Publish(ctx, event.CompanyCreated, map[string]string{"companyId": "c-1"})
	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, disp.Flush(flushCtx))

	r := chi.NewRouter()
	admin.NewHandler(admin.HandlerConfig{
		Failures:   failures,
		Reconciler: event.NewReconciler(disp, nil, 0, 10, nil),
	}).RegisterRoutes(r, passthrough, passthrough)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/reactions/failures", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var listed []event.Failure
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "provision-contact", listed[0].Reaction)

	fail = false
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reactions/reconcile", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var report event.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, event.Report{Attempted: 1, Resolved: 1}, report)

	pending, err := failures.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestListFailures_RejectsBadLimit(t *testing.T) {
	r := chi.NewRouter()
	admin.NewHandler(admin.HandlerConfig{Failures: memstore.New().Failures()}).
		RegisterRoutes(r, passthrough, passthrough)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/reactions/failures?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
