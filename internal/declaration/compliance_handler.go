package declaration

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/platform/httpx"
	"github.com/cbamflow/cbamflow/internal/tenant"
)

// MountPlanRoutes registers monitoring plan routes.
func (h *Handler) MountPlanRoutes(r chi.Router) {
	r.Get("/", h.listPlans)
	r.Post("/", h.createPlan)
	r.Patch("/{id}", h.updatePlan)
	r.Delete("/{id}", h.deletePlan)
}

// MountAuthorisationRoutes registers authorisation application routes.
func (h *Handler) MountAuthorisationRoutes(r chi.Router) {
	r.Get("/", h.listAuthorisations)
	r.Post("/", h.createAuthorisation)
	r.Patch("/{id}", h.updateAuthorisation)
	r.Delete("/{id}", h.deleteAuthorisation)
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	records, err := h.service.ListPlans(r.Context(), scope)
	if err != nil {
		h.fail(w, "list monitoring plans", err)
		return
	}
	if records == nil {
		records = []datastore.Record{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input PlanInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.CreatePlan(r.Context(), scope, input)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.fail(w, "create monitoring plan", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) updatePlan(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input PlanUpdate
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	record, err := h.service.UpdatePlan(r.Context(), scope, chi.URLParam(r, "id"), input)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.fail(w, "update monitoring plan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) deletePlan(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.DeletePlan(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete monitoring plan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) listAuthorisations(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	records, err := h.service.ListAuthorisations(r.Context(), scope)
	if err != nil {
		h.fail(w, "list authorisations", err)
		return
	}
	if records == nil {
		records = []datastore.Record{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) createAuthorisation(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input AuthorisationInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	record, err := h.service.CreateAuthorisation(r.Context(), scope, input)
	if err != nil {
		h.fail(w, "create authorisation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) updateAuthorisation(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	var input AuthorisationUpdate
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	record, err := h.service.UpdateAuthorisation(r.Context(), scope, chi.URLParam(r, "id"), input)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.fail(w, "update authorisation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) deleteAuthorisation(w http.ResponseWriter, r *http.Request) {
	scope := tenant.ScopeFromContext(r.Context())
	if err := h.service.DeleteAuthorisation(r.Context(), scope, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete authorisation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
