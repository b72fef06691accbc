package tickets

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/socdesk/socdesk/internal/access"
	"github.com/socdesk/socdesk/internal/platform/httpx"
	"github.com/socdesk/socdesk/internal/shared"
)

// Handler serves ticket endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ticket routes. Reads are filtered by ticket
// visibility rather than gated, so creators and assignees always reach their
// own tickets.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/board", h.board)
	r.Get("/{id}", h.get)
	r.Get("/{id}/capabilities", h.capabilities)
	r.Post("/{id}/status", h.changeStatus)
	r.Post("/{id}/group", h.assignGroup)
	r.Post("/{id}/assignee", h.assignUser)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{}
	filter.Page, filter.PerPage = shared.PageParams(r)
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := access.ParseStatus(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		filter.Status = &st
	}
	items, page, err := h.service.List(r.Context(), principal(r), filter)
	if err != nil {
		h.respondErr(w, "list tickets", err)
		return
	}
	if items == nil {
		items = []Ticket{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tickets": items, "pagination": page})
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) {
	columns, err := h.service.Board(r.Context(), principal(r))
	if err != nil {
		h.respondErr(w, "ticket board", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"columns": columns})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.service.Get(r.Context(), principal(r), id)
	if err != nil {
		h.respondErr(w, "get ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) capabilities(w http.ResponseWriter, r *http.Request) {
	caps, err := h.service.Capabilities(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, "ticket capabilities", err)
		return
	}
	httpx.JSON(w, http.StatusOK, caps)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var in ChangeStatusInput
	if !httpx.DecodeAndValidate(w, r, h.validate, &in) {
		return
	}
	t, err := h.service.ChangeStatus(r.Context(), principal(r), chi.URLParam(r, "id"), shared.IdempotencyKey(r), in)
	if err != nil {
		h.respondErr(w, "change ticket status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) assignGroup(w http.ResponseWriter, r *http.Request) {
	var in AssignGroupInput
	if !httpx.DecodeAndValidate(w, r, h.validate, &in) {
		return
	}
	t, err := h.service.AssignGroup(r.Context(), principal(r), chi.URLParam(r, "id"), shared.IdempotencyKey(r), in.GroupID)
	if err != nil {
		h.respondErr(w, "assign ticket group", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) assignUser(w http.ResponseWriter, r *http.Request) {
	var in AssignUserInput
	if !httpx.DecodeAndValidate(w, r, h.validate, &in) {
		return
	}
	t, err := h.service.AssignUser(r.Context(), principal(r), chi.URLParam(r, "id"), shared.IdempotencyKey(r), in.UserID)
	if err != nil {
		h.respondErr(w, "assign ticket user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

// respondErr logs unexpected failures and maps err to a problem response.
func (h *Handler) respondErr(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, httpx.ErrNotFound),
		errors.Is(err, httpx.ErrForbidden),
		errors.Is(err, httpx.ErrValidation),
		errors.Is(err, httpx.ErrConflict),
		errors.Is(err, httpx.ErrDuplicate),
		errors.Is(err, httpx.ErrUnauthorized):
	default:
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func principal(r *http.Request) *access.Principal {
	return shared.PrincipalFromContext(r.Context())
}
