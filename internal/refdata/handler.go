package refdata

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/platform/httpx"
)

// Handler exposes reference data lookups.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers reference data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/countries", h.countries)
	r.Get("/cities", h.cities)
	r.Get("/districts", h.districts)
	r.Get("/tax-offices", h.taxOffices)
	r.Get("/cn-codes", h.cnCodes)
}

func (h *Handler) countries(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "countries", func(ctx context.Context) ([]datastore.Record, error) {
		return h.service.Countries(ctx)
	}, r)
}

func (h *Handler) cities(w http.ResponseWriter, r *http.Request) {
	countryID := r.URL.Query().Get("countryId")
	h.respond(w, "cities", func(ctx context.Context) ([]datastore.Record, error) {
		return h.service.Cities(ctx, countryID)
	}, r)
}

func (h *Handler) districts(w http.ResponseWriter, r *http.Request) {
	cityID := r.URL.Query().Get("cityId")
	h.respond(w, "districts", func(ctx context.Context) ([]datastore.Record, error) {
		return h.service.Districts(ctx, cityID)
	}, r)
}

func (h *Handler) taxOffices(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "tax offices", func(ctx context.Context) ([]datastore.Record, error) {
		return h.service.TaxOffices(ctx)
	}, r)
}

func (h *Handler) cnCodes(w http.ResponseWriter, r *http.Request) {
	categoryID := r.URL.Query().Get("goodsCategoryId")
	h.respond(w, "cn codes", func(ctx context.Context) ([]datastore.Record, error) {
		return h.service.CnCodes(ctx, categoryID)
	}, r)
}

func (h *Handler) respond(w http.ResponseWriter, op string, load func(context.Context) ([]datastore.Record, error), r *http.Request) {
	records, err := load(r.Context())
	if err != nil {
		h.logger.Error("refdata "+op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if records == nil {
		records = []datastore.Record{}
	}
	httpx.JSON(w, http.StatusOK, records)
}
