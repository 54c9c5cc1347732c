// AngelaMos | 2026
// handler.go

package company

import (
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

var fileFields = []string{
	"company[certificate]",
	"company[logo]",
	"contactPerson[idAttachment]",
}

// readers may list companies and read any single company.
var readers = []rbac.Role{rbac.RoleDeveloper, rbac.RoleAgent, rbac.RoleManager}

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
	r.Route("/companies", func(r chi.Router) {
		r.Use(authenticator)

		r.With(middleware.RequireRoles(readers...)).Get("/", h.List)
		r.With(middleware.RequireRoles(readers...)).
			Get("/analysis/count-by-month/{year}", h.CountByMonth)
		r.Get("/{companyID}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.With(h.uploads.Middleware(fileFields...)).Post("/", h.Create)
			r.With(h.uploads.Middleware(fileFields...)).Put("/{companyID}", h.Update)
			r.Delete("/{companyID}", h.Delete)
		})
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := store.Page{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "limit", 20),
	}
	page.Normalize()

	views, total, err := h.service.List(r.Context(), page)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Paginated(
		w,
		"companies fetched successfully",
		ToDetailResponseList(views),
		page.Page,
		page.PageSize,
		total,
	)
}

func (h *Handler) CountByMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1970 || year > time.Now().Year()+1 {
		core.BadRequest(w, "invalid year")
		return
	}

	counts, err := h.service.CountByMonth(r.Context(), year)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, "companies count by month fetched successfully", counts)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")

	decision := rbac.Authorize(
		middleware.GetActor(r.Context()),
		readers,
		func(actor *rbac.Actor) bool { return actor.InCompany(companyID) },
	)
	if err := decision.Err(); err != nil {
		core.JSONError(w, err)
		return
	}

	v, err := h.service.Get(r.Context(), companyID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, "company fetched successfully", ToDetailResponse(v))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	c, err := h.service.Create(r.Context(), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, "company created successfully", ToCompanyResponse(c))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateCompanyRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	c, err := h.service.Update(r.Context(), chi.URLParam(r, "companyID"), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, "company updated successfully", ToCompanyResponse(c))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Delete(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, "company and related data deleted successfully", ToCompanyResponse(c))
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
