package groups

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/socdesk/socdesk/internal/platform/httpx"
	"github.com/socdesk/socdesk/internal/rbac"
	"github.com/socdesk/socdesk/internal/shared"
)

// Handler serves group endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers group routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/assignable", h.assignable)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermGroupsView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
}

func (h *Handler) assignable(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.Assignable(r.Context(), shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.logger.Error("assignable groups", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroups(r.Context())
	if err != nil {
		h.logger.Error("list groups", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if groups == nil {
		groups = []Group{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	group, err := h.service.GetGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, group)
}
