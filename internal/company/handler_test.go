// AngelaMos | 2026
// handler_test.go

package company_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tenant-backend/internal/attachment"
	"github.com/carterperez-dev/templates/tenant-backend/internal/company"
	"github.com/carterperez-dev/templates/tenant-backend/internal/config"
	"github.com/carterperez-dev/templates/tenant-backend/internal/middleware"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
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
	uploads := attachment.New(config.UploadsConfig{Dir: t.TempDir()}, nil)
	r := chi.NewRouter()
	company.NewHandler(f.svc, uploads).RegisterRoutes(r, asActor(actor))
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

var admin = &rbac.Actor{UserID: "admin-1", Roles: []rbac.Role{rbac.RoleAdmin}}

func TestHandler_CreateReturns201EvenWhenReactionFails(t *testing.T) {
	f := newFixture(t)

	other := f.seedCompany(t, "Other", "o@other.com")
	f.seedMember(t, other.ID, "x@other.com", "+255700000001", rbac.RoleCompanyUser)

	body := acmeRequest()
	body.ContactPerson.PhoneNumber = "+255700000001"

	rec, env := serve(t, f.router(t, admin), jsonRequest(t, http.MethodPost, "/companies", body))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.Nil(t, env.Error)

	var created company.CompanyResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Acme", created.Name)

	f.flush(t)
	assert.Contains(t, f.logs.String(), "reaction failed")

	pending, err := f.failures.Pending(context.Background(), 0)
	require.NoError(t, err)
	assert.NotEmpty(t, pending)
}

func TestHandler_CreateValidationListsFields(t *testing.T) {
	f := newFixture(t)

	rec, env := serve(t, f.router(t, admin), jsonRequest(t, http.MethodPost, "/companies", map[string]any{
		"company":       map[string]any{"email": "not-an-email"},
		"contactPerson": map[string]any{"firstName": "J"},
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, rec.Body.String(), "company.name")
	assert.Contains(t, rec.Body.String(), "contactPerson.email")
}

func TestHandler_MultipartCreateStoresLogo(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"company[name]":            "Acme",
		"company[email]":           "a@acme.com",
		"contactPerson[firstName]": "J",
		"contactPerson[lastName]":  "Doe",
		"contactPerson[email]":     "j@acme.com",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("company[logo]", "logo.png")
	require.NoError(t, err)
	_, err = io.WriteString(fw, "png-bytes")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/companies", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec, env := serve(t, f.router(t, admin), req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created company.CompanyResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.True(t, strings.HasSuffix(created.Logo, ".png"))
}

func TestHandler_Authorization(t *testing.T) {
	f := newFixture(t)
	acme := f.seedCompany(t, "Acme", "a@acme.com")
	other := f.seedCompany(t, "Other", "o@other.com")

	acmeID := acme.ID
	member := &rbac.Actor{UserID: "u-1", Roles: []rbac.Role{rbac.RoleCompanyAdmin}, CompanyID: &acmeID}
	client := &rbac.Actor{UserID: "u-2", Roles: []rbac.Role{rbac.RoleClient}}

	tests := []struct {
		name   string
		actor  *rbac.Actor
		method string
		target string
		status int
		code   string
	}{
		{"admin lists", admin, http.MethodGet, "/companies", http.StatusOK, ""},
		{"client cannot list", client, http.MethodGet, "/companies", http.StatusForbidden, "INSUFFICIENT_ROLE"},
		{"member reads own company", member, http.MethodGet, "/companies/" + acme.ID, http.StatusOK, ""},
		{"member cannot read other company", member, http.MethodGet, "/companies/" + other.ID, http.StatusForbidden, "NOT_OWNER"},
		{"company admin cannot delete", member, http.MethodDelete, "/companies/" + acme.ID, http.StatusForbidden, "INSUFFICIENT_ROLE"},
		{"admin deletes", admin, http.MethodDelete, "/companies/" + other.ID, http.StatusOK, ""},
		{"unknown company", admin, http.MethodGet, "/companies/00000000-0000-0000-0000-000000000000", http.StatusNotFound, "NOT_FOUND"},
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

func TestHandler_CountByMonthReturnsTwelveBuckets(t *testing.T) {
	f := newFixture(t)

	rec, env := serve(t, f.router(t, admin),
		httptest.NewRequest(http.MethodGet, "/companies/analysis/count-by-month/2024", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var counts []int
	require.NoError(t, json.Unmarshal(env.Data, &counts))
	assert.Len(t, counts, 12)
}
