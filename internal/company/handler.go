package company

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/platform/httpx"
	"github.com/cbamflow/cbamflow/internal/tenant"
)

// Handler exposes company CRUD endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers company routes. The tenant middleware must wrap
// this subtree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	records, err := h.service.List(r.Context(), scope)
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if records == nil {
		records = []datastore.Record{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	record, err := h.service.Get(r.Context(), scope, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "company not found")
			return
		}
		h.logger.Error("get company", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input Input
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.Create(r.Context(), scope, input)
	if err != nil {
		h.logger.Error("create company", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input Input
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.Update(r.Context(), scope, chi.URLParam(r, "id"), input)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "company not found")
			return
		}
		h.logger.Error("update company", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.Delete(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "company not found")
			return
		}
		h.logger.Error("delete company", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
