// AngelaMos | 2026
// handler_test.go

package staff_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tenant-backend/internal/attachment"
	"github.com/carterperez-dev/templates/tenant-backend/internal/config"
	"github.com/carterperez-dev/templates/tenant-backend/internal/middleware"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/staff"
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Error      *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func asActor(actor *rbac.Actor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithActor(r.Context(), actor)))
		})
	}
}

func (f *fixture) router(t *testing.T, actor *rbac.Actor) http.Handler {
	t.Helper()
	return f.routerWithUploads(t, actor, t.TempDir())
}

func (f *fixture) routerWithUploads(t *testing.T, actor *rbac.Actor, dir string) http.Handler {
	t.Helper()
	uploads := attachment.New(config.UploadsConfig{Dir: dir}, nil)
	r := chi.NewRouter()
	staff.NewHandler(f.svc, uploads).RegisterRoutes(r, asActor(actor))
	return r
}

func serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandler_CreateIntoOwnCompany(t *testing.T) {
	f := newFixture(t)
	acme := f.seedCompany(t, "acme")

	rec, env := serve(t, f.router(t, companyAdmin(acme.ID)),
		jsonRequest(t, http.MethodPost, "/staff", map[string]any{
			"firstName": "Ann",
			"lastName":  "Lee",
			"email":     "ann@acme.test",
			"title":     "Clerk",
		}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created staff.StaffResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, acme.ID, created.CompanyID)
	assert.Equal(t, "Clerk", created.Title)
}

func TestHandler_CreateRequiresCompanyAdmin(t *testing.T) {
	f := newFixture(t)
	acme := f.seedCompany(t, "acme")
	acmeID := acme.ID
	member := &rbac.Actor{UserID: "u-9", Roles: []rbac.Role{rbac.RoleCompanyUser}, CompanyID: &acmeID}

	rec, env := serve(t, f.router(t, member),
		jsonRequest(t, http.MethodPost, "/staff", map[string]any{
			"firstName": "Ann",
			"lastName":  "Lee",
			"email":     "ann@acme.test",
		}))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INSUFFICIENT_ROLE", env.Error.Code)
}

func TestHandler_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.seedCompany(t, "acme")
	other := f.seedCompany(t, "other")

	ann, err := f.svc.Create(ctx, companyAdmin(acme.ID), newStaff("ann@acme.test", ""))
	require.NoError(t, err)
	bob, err := f.svc.Create(ctx, companyAdmin(acme.ID), newStaff("bob@acme.test", ""))
	require.NoError(t, err)

	acmeID := acme.ID
	annActor := &rbac.Actor{UserID: ann.User.ID, Roles: []rbac.Role{rbac.RoleCompanyUser}, CompanyID: &acmeID}

	tests := []struct {
		name   string
		actor  *rbac.Actor
		method string
		target string
		status int
		code   string
	}{
		{"admin reads any member", admin, http.MethodGet, "/staff/" + ann.User.ID, http.StatusOK, ""},
		{"company admin reads own staff", companyAdmin(acme.ID), http.MethodGet, "/staff/" + ann.User.ID, http.StatusOK, ""},
		{"foreign company admin", companyAdmin(other.ID), http.MethodGet, "/staff/" + ann.User.ID, http.StatusForbidden, "NOT_OWNER"},
		{"member reads self", annActor, http.MethodGet, "/staff/" + ann.User.ID, http.StatusOK, ""},
		{"member cannot read colleague", annActor, http.MethodGet, "/staff/" + bob.User.ID, http.StatusForbidden, "NOT_OWNER"},
		{"member cannot list", annActor, http.MethodGet, "/staff", http.StatusForbidden, "INSUFFICIENT_ROLE"},
		{"foreign company admin cannot delete", companyAdmin(other.ID), http.MethodDelete, "/staff/" + bob.User.ID, http.StatusForbidden, "NOT_OWNER"},
		{"unknown member", admin, http.MethodGet, "/staff/00000000-0000-0000-0000-000000000000", http.StatusNotFound, "NOT_FOUND"},
		{"company admin deletes own staff", companyAdmin(acme.ID), http.MethodDelete, "/staff/" + bob.User.ID, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			rec, env := serve(t, f.router(t, tt.actor), req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.code, env.Error.Code)
			}
		})
	}
}

func TestHandler_MyStaffPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.seedCompany(t, "acme")

	for _, email := range []string{"a@acme.test", "b@acme.test", "c@acme.test"} {
		_, err := f.svc.Create(ctx, companyAdmin(acme.ID), newStaff(email, ""))
		require.NoError(t, err)
	}

	rec, _ := serve(t, f.router(t, companyAdmin(acme.ID)),
		httptest.NewRequest(http.MethodGet, "/staff/my-staff?page=1&limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data         []staff.StaffResponse `json:"data"`
		TotalItems   int                   `json:"totalItems"`
		ItemsPerPage int                   `json:"itemsPerPage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, 3, body.TotalItems)
	assert.Equal(t, 2, body.ItemsPerPage)
}

func TestHandler_CountByMonthRejectsBadYear(t *testing.T) {
	f := newFixture(t)
	acme := f.seedCompany(t, "acme")

	rec, _ := serve(t, f.router(t, companyAdmin(acme.ID)),
		httptest.NewRequest(http.MethodGet, "/staff/analysis/company/nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartUpdate(t *testing.T, target, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Engineer"))
	fw, err := mw.CreateFormFile("idAttachment", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, "id-scan")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandler_UpdateStoresNothingUnlessAuthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.seedCompany(t, "acme")
	other := f.seedCompany(t, "other")

	ann, err := f.svc.Create(ctx, companyAdmin(acme.ID), newStaff("ann@acme.test", ""))
	require.NoError(t, err)

	client := &rbac.Actor{UserID: "client-1", Roles: []rbac.Role{rbac.RoleClient}}

	tests := []struct {
		name   string
		actor  *rbac.Actor
		target string
		status int
	}{
		{"unknown member", client, "/staff/00000000-0000-0000-0000-000000000000", http.StatusNotFound},
		{"client", client, "/staff/" + ann.User.ID, http.StatusForbidden},
		{"foreign company admin", companyAdmin(other.ID), "/staff/" + ann.User.ID, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			rec, _ := serve(t, f.routerWithUploads(t, tt.actor, dir), multipartUpdate(t, tt.target, "scan.pdf"))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}

	dir := t.TempDir()
	rec, _ := serve(t, f.routerWithUploads(t, companyAdmin(acme.ID), dir),
		multipartUpdate(t, "/staff/"+ann.User.ID, "scan.pdf"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
