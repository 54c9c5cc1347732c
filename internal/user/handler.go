// AngelaMos | 2026
// handler.go

package user

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/tenant-backend/internal/attachment"
	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/middleware"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

type Handler struct {
	service   *Service
	uploads   *attachment.Store
	validator *core.Validator
}

func NewHandler(service *Service, uploads *attachment.Store) *Handler {
	return &Handler{
		service:   service,
		uploads:   uploads,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.With(middleware.RequireRoles(rbac.RoleAdmin, rbac.RoleDeveloper)).
			Get("/", h.List)
		r.With(middleware.RequireAdmin, h.uploads.Middleware("photo")).
			Post("/", h.Create)
		r.Get("/{userID}", h.Get)
		r.With(requireSelf, h.uploads.Middleware("photo")).Put("/{userID}", h.Update)
		r.With(middleware.RequireAdmin).Delete("/{userID}", h.Delete)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, "user fetched successfully", ToUserResponse(p))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.UserFilter{
		Page: store.Page{
			Page:     parseIntQuery(r, "page", 1),
			PageSize: parseIntQuery(r, "limit", 20),
		},
		Search: r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := rbac.ParseRole(raw)
		if err != nil {
			core.BadRequest(w, "unknown role filter")
			return
		}
		filter.Role = role
	}
	filter.Normalize()

	profiles, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Paginated(
		w,
		"users fetched successfully",
		ToUserResponseList(profiles),
		filter.Page.Page,
		filter.PageSize,
		total,
	)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, "user created successfully", ToUserResponse(p))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	decision := rbac.Authorize(
		middleware.GetActor(r.Context()),
		[]rbac.Role{rbac.RoleDeveloper},
		rbac.SelfOwner(userID),
	)
	if err := decision.Err(); err != nil {
		core.JSONError(w, err)
		return
	}

	p, err := h.service.Get(r.Context(), userID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, "user fetched successfully", ToUserResponse(p))
}

// requireSelf admits ADMIN and the user named by {userID}.
func requireSelf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := rbac.Authorize(
			middleware.GetActor(r.Context()),
			nil,
			rbac.SelfOwner(chi.URLParam(r, "userID")),
		)
		if err := decision.Err(); err != nil {
			core.JSONError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	actor := middleware.GetActor(r.Context())

	var req UpdateUserRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	p, err := h.service.Update(r.Context(), actor, userID, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, "user updated successfully", ToUserResponse(p))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.service.Delete(r.Context(), userID); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, "user deleted successfully", map[string]string{"id": userID})
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
