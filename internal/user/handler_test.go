// AngelaMos | 2026
// handler_test.go

package user_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tenant-backend/internal/attachment"
	"github.com/carterperez-dev/templates/tenant-backend/internal/config"
	"github.com/carterperez-dev/templates/tenant-backend/internal/middleware"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/user"
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Error      *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (f *fixture) router(t *testing.T, actor *rbac.Actor) http.Handler {
	t.Helper()
	uploads := attachment.New(config.UploadsConfig{Dir: t.TempDir()}, nil)
	asActor := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithActor(r.Context(), actor)))
		})
	}

	r := chi.NewRouter()
	user.NewHandler(f.svc, uploads).RegisterRoutes(r, asActor)
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

func TestHandler_Authorization(t *testing.T) {
	f := newFixture(t)
	jo := f.create(t, "jo@example.com", rbac.RoleClient)
	al := f.create(t, "al@example.com", rbac.RoleClient)

	joActor := &rbac.Actor{UserID: jo.User.ID, Roles: []rbac.Role{rbac.RoleClient}}
	dev := &rbac.Actor{UserID: "dev-1", Roles: []rbac.Role{rbac.RoleDeveloper}}

	tests := []struct {
		name   string
		actor  *rbac.Actor
		method string
		target string
		status int
		code   string
	}{
		{"client reads self", joActor, http.MethodGet, "/users/" + jo.User.ID, http.StatusOK, ""},
		{"client cannot read others", joActor, http.MethodGet, "/users/" + al.User.ID, http.StatusForbidden, "NOT_OWNER"},
		{"developer reads anyone", dev, http.MethodGet, "/users/" + al.User.ID, http.StatusOK, ""},
		{"client cannot list", joActor, http.MethodGet, "/users", http.StatusForbidden, "INSUFFICIENT_ROLE"},
		{"developer lists", dev, http.MethodGet, "/users?role=client", http.StatusOK, ""},
		{"unknown role filter", dev, http.MethodGet, "/users?role=wizard", http.StatusBadRequest, "BAD_REQUEST"},
		{"developer cannot delete", dev, http.MethodDelete, "/users/" + al.User.ID, http.StatusForbidden, "INSUFFICIENT_ROLE"},
		{"admin deletes", admin, http.MethodDelete, "/users/" + al.User.ID, http.StatusOK, ""},
		{"me", joActor, http.MethodGet, "/users/me", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := serve(t, f.router(t, tt.actor), httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.code, env.Error.Code)
			}
		})
	}
}

func TestHandler_SelfUpdateCannotPromote(t *testing.T) {
	f := newFixture(t)
	jo := f.create(t, "jo@example.com", rbac.RoleClient)
	joActor := &rbac.Actor{UserID: jo.User.ID, Roles: []rbac.Role{rbac.RoleClient}}

	raw, err := json.Marshal(map[string]any{"role": "ADMIN"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/users/"+jo.User.ID, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	rec, env := serve(t, f.router(t, joActor), req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "INSUFFICIENT_ROLE", env.Error.Code)
}

func TestHandler_AdminCreateReturnsRoles(t *testing.T) {
	f := newFixture(t)

	raw, err := json.Marshal(map[string]any{
		"firstName": "Jo",
		"lastName":  "Doe",
		"email":     "jo@example.com",
		"password":  "correct-horse",
		"role":      "developer",
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	rec, env := serve(t, f.router(t, admin), req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created user.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Len(t, created.Roles, 1)
	assert.Equal(t, rbac.RoleDeveloper, created.Roles[0].Name)
}
