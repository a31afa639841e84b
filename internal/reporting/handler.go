package reporting

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

// Handler exposes report, section, content and template endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/sections", h.createSection)
	r.Delete("/sections/{id}", h.deleteSection)
	r.Post("/contents", h.createContent)
	r.Delete("/contents/{id}", h.deleteContent)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/pdf", h.exportPDF)
}

// MountTemplateRoutes registers report template routes.
func (h *Handler) MountTemplateRoutes(r chi.Router) {
	r.Get("/", h.listTemplates)
	r.Post("/", h.createTemplate)
	r.Put("/{id}", h.updateTemplate)
	r.Delete("/{id}", h.deleteTemplate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	records, err := h.service.List(r.Context(), scope)
	if err != nil {
		h.fail(w, "list reports", err)
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
		h.fail(w, "get report", err)
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
		h.fail(w, "create report", err)
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
		h.fail(w, "update report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.Delete(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) createSection(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input SectionInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.CreateSection(r.Context(), scope, input)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "report not found in this tenant")
			return
		}
		h.fail(w, "create report section", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) deleteSection(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.DeleteSection(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete report section", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) createContent(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input ContentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.CreateContent(r.Context(), scope, input)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "report section not found in this tenant")
			return
		}
		h.fail(w, "create section content", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) deleteContent(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.DeleteContent(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete section content", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	records, err := h.service.ListTemplates(r.Context(), scope)
	if err != nil {
		h.fail(w, "list report templates", err)
		return
	}
	if records == nil {
		records = []datastore.Record{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input TemplateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.CreateTemplate(r.Context(), scope, input)
	if err != nil {
		h.fail(w, "create report template", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) updateTemplate(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input TemplateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.UpdateTemplate(r.Context(), scope, chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "update report template", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.DeleteTemplate(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete report template", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	pdf, err := h.service.ExportPDF(r.Context(), scope, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "record not found")
			return
		}
		h.logger.Error("export report pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "PDF renderer unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=report.pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, datastore.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record not found")
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
