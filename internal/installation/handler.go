package installation

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

// Handler exposes installation and reporting-period endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers installation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// MountDataRoutes registers reporting-period routes.
func (h *Handler) MountDataRoutes(r chi.Router) {
	r.Get("/", h.listData)
	r.Post("/", h.createData)
	r.Get("/{id}", h.getData)
	r.Put("/{id}", h.updateData)
	r.Delete("/{id}", h.deleteData)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	records, err := h.service.List(r.Context(), scope)
	if err != nil {
		h.fail(w, "list installations", err)
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
		h.fail(w, "get installation", err)
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
		if errors.Is(err, datastore.ErrNotFound) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company not found in this tenant")
			return
		}
		h.fail(w, "create installation", err)
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
		h.fail(w, "update installation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.Delete(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete installation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) listData(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	records, err := h.service.ListData(r.Context(), scope, r.URL.Query().Get("installationId"))
	if err != nil {
		h.fail(w, "list installation data", err)
		return
	}
	if records == nil {
		records = []datastore.Record{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) getData(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	record, err := h.service.GetData(r.Context(), scope, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get installation data", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) createData(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input DataInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.CreateData(r.Context(), scope, input)
	if err != nil {
		switch {
		case errors.Is(err, datastore.ErrNotFound):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "installation not found in this tenant")
		case errors.Is(err, ErrInvalidDate):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		default:
			h.fail(w, "create installation data", err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) updateData(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input DataInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.UpdateData(r.Context(), scope, chi.URLParam(r, "id"), input)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.fail(w, "update installation data", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) deleteData(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.DeleteData(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete installation data", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, datastore.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record not found")
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
