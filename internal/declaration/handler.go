package declaration

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

// Handler exposes declaration, certificate and surrender endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers annual declaration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Post("/{id}/submit", h.submit)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/adjustments", h.createAdjustment)
	r.Delete("/adjustments/{id}", h.deleteAdjustment)
}

// MountCertificateRoutes registers CBAM certificate routes.
func (h *Handler) MountCertificateRoutes(r chi.Router) {
	r.Get("/", h.listCertificates)
	r.Post("/", h.createCertificate)
	r.Get("/balance", h.balance)
	r.Post("/surrenders", h.createSurrender)
	r.Delete("/surrenders/{id}", h.deleteSurrender)
	r.Delete("/{id}", h.deleteCertificate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	records, err := h.service.List(r.Context(), scope)
	if err != nil {
		h.fail(w, "list declarations", err)
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
		h.fail(w, "get declaration", err)
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
		h.fail(w, "create declaration", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	record, err := h.service.Update(r.Context(), scope, chi.URLParam(r, "id"), input)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) || errors.Is(err, ErrInvalidDate) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.fail(w, "update declaration", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	record, err := h.service.Submit(r.Context(), scope, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "submit declaration", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.Delete(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete declaration", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) listCertificates(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	records, err := h.service.ListCertificates(r.Context(), scope)
	if err != nil {
		h.fail(w, "list certificates", err)
		return
	}
	if records == nil {
		records = []datastore.Record{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) createCertificate(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input CertificateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.CreateCertificate(r.Context(), scope, input)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.fail(w, "create certificate", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) deleteCertificate(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.DeleteCertificate(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete certificate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	balance, err := h.service.Balance(r.Context(), scope)
	if err != nil {
		h.fail(w, "certificate balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) createSurrender(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input SurrenderInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.CreateSurrender(r.Context(), scope, input)
	if err != nil {
		switch {
		case errors.Is(err, datastore.ErrNotFound):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "certificate or declaration not found in this tenant")
		case errors.Is(err, ErrInsufficientBalance):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "surrender exceeds certificate balance")
		case errors.Is(err, ErrInvalidDate):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		default:
			h.fail(w, "create surrender", err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) deleteSurrender(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.DeleteSurrender(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete surrender", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) createAdjustment(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input AdjustmentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	input.DeclarationID = chi.URLParam(r, "id")
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.CreateAdjustment(r.Context(), scope, input)
	if err != nil {
		h.fail(w, "create adjustment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) deleteAdjustment(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.DeleteAdjustment(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete adjustment", err)
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
