// AngelaMos | 2026
// handler.go

package staff

import (
	"context"
	"net/http"
	"strconv"
	"time"

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
	companyAdmin := middleware.RequireRoles(rbac.RoleCompanyAdmin)

	r.Route("/staff", func(r chi.Router) {
		r.Use(authenticator)

		r.With(companyAdmin).Get("/", h.List)
		r.With(companyAdmin).Get("/my-staff", h.MyStaff)
		r.With(companyAdmin).Get("/analysis/company/{year}", h.CountByMonth)
		r.With(companyAdmin, h.uploads.Middleware("idAttachment")).Post("/", h.Create)
		r.With(h.member(true)).Get("/{userID}", h.Get)
		r.With(h.member(false), h.uploads.Middleware("idAttachment")).Put("/{userID}", h.Update)
		r.With(h.member(false)).Delete("/{userID}", h.Delete)
	})
}

func pageOf(r *http.Request) store.Page {
	page := store.Page{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "limit", 20),
	}
	page.Normalize()
	return page
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pageOf(r)

	members, total, err := h.service.List(r.Context(), middleware.GetActor(r.Context()), page)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Paginated(w, "staff members retrieved successfully",
		ToStaffResponseList(members), page.Page, page.PageSize, total)
}

func (h *Handler) MyStaff(w http.ResponseWriter, r *http.Request) {
	page := pageOf(r)

	members, total, err := h.service.MyStaff(r.Context(), middleware.GetActor(r.Context()), page)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Paginated(w, "staff members retrieved successfully",
		ToStaffResponseList(members), page.Page, page.PageSize, total)
}

func (h *Handler) CountByMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1970 || year > time.Now().Year()+1 {
		core.BadRequest(w, "invalid year")
		return
	}

	counts, err := h.service.CountByMonth(r.Context(), middleware.GetActor(r.Context()), year)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, "company staff count by month fetched successfully", counts)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateStaffRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	member, err := h.service.Create(r.Context(), middleware.GetActor(r.Context()), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, "staff member created successfully", ToStaffResponse(member))
}

type memberKey struct{}

// member loads the {userID} member and authorizes the actor against its
// company before the rest of the chain runs. ADMIN always passes;
// COMPANY_ADMIN passes inside its own company; a member may reach its own
// record when allowSelf is set.
func (h *Handler) member(allowSelf bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			member, err := h.service.Get(r.Context(), chi.URLParam(r, "userID"))
			if err != nil {
				core.JSONError(w, err)
				return
			}

			owner := rbac.CompanyOwner(member.Membership.CompanyID)
			check := owner
			if allowSelf {
				self := rbac.SelfOwner(member.User.ID)
				check = func(a *rbac.Actor) bool { return owner(a) || self(a) }
			}

			decision := rbac.Authorize(middleware.GetActor(r.Context()), nil, check)
			if err := decision.Err(); err != nil {
				core.JSONError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), memberKey{}, member)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func memberFrom(ctx context.Context) *store.StaffMember {
	member, _ := ctx.Value(memberKey{}).(*store.StaffMember)
	return member
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	member := memberFrom(r.Context())

	core.OK(w, "staff member fetched successfully", ToStaffResponse(member))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	member := memberFrom(r.Context())

	var req UpdateStaffRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	updated, err := h.service.Update(r.Context(), member, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, "staff member updated successfully", ToStaffResponse(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	member := memberFrom(r.Context())

	if err := h.service.Delete(r.Context(), member); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, "staff member deleted successfully", ToStaffResponse(member))
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
