package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/cbamflow/cbamflow/internal/auth"
	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/company"
	"github.com/cbamflow/cbamflow/internal/dashboard"
	"github.com/cbamflow/cbamflow/internal/declaration"
	"github.com/cbamflow/cbamflow/internal/emissions"
	"github.com/cbamflow/cbamflow/internal/installation"
	"github.com/cbamflow/cbamflow/internal/observability"
	"github.com/cbamflow/cbamflow/internal/platform/httpx"
	"github.com/cbamflow/cbamflow/internal/refdata"
	"github.com/cbamflow/cbamflow/internal/reporting"
	"github.com/cbamflow/cbamflow/internal/shared"
	"github.com/cbamflow/cbamflow/internal/supplier"
	"github.com/cbamflow/cbamflow/internal/tenant"
	"github.com/cbamflow/cbamflow/internal/users"
	"github.com/cbamflow/cbamflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Resolver       *tenant.Resolver
	Authz          authz.Middleware

	AuthHandler         *auth.Handler
	UsersHandler        *users.Handler
	CompanyHandler      *company.Handler
	InstallationHandler *installation.Handler
	EmissionsHandler    *emissions.Handler
	SupplierHandler     *supplier.Handler
	DeclarationHandler  *declaration.Handler
	DashboardHandler    *dashboard.Handler
	RefdataHandler      *refdata.Handler
	ReportingHandler    *reporting.Handler
	JobHandler          *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router serving the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		// Auth endpoints are open but kept behind a tight per-IP budget
		// against credential stuffing.
		api.Group(func(g chi.Router) {
			g.Use(httprate.Limit(10, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint)))
			g.Get("/auth/csrf", csrfTokenHandler(params.CSRFManager, params.Logger))
			g.Route("/auth", params.AuthHandler.MountRoutes)
		})

		// Everything past this point needs a logged-in session.
		api.Group(func(g chi.Router) {
			g.Use(params.Authz.RequireAuthenticated)
			g.Use(params.Authz.RouteGuard)

			g.Get("/authz/route-access", routeAccessHandler())

			// Tenant-scoped surface. The resolver binds the request to the
			// session's tenant; requests without a tenant claim never reach
			// these handlers.
			g.Group(func(t chi.Router) {
				t.Use(params.Resolver.Middleware())

				t.Route("/dashboard", params.DashboardHandler.MountRoutes)
				t.Route("/supplier-portal", params.SupplierHandler.MountPortalRoutes)

				t.Route("/companies", operatorOnly(params.Authz, params.CompanyHandler.MountRoutes))
				t.Route("/installations", operatorOnly(params.Authz, params.InstallationHandler.MountRoutes))
				t.Route("/installation-data", operatorOnly(params.Authz, params.InstallationHandler.MountDataRoutes))
				t.Route("/emissions", operatorOnly(params.Authz, params.EmissionsHandler.MountRoutes))
				t.Route("/suppliers", operatorOnly(params.Authz, params.SupplierHandler.MountRoutes))
				t.Route("/refdata", operatorOnly(params.Authz, params.RefdataHandler.MountRoutes))
				t.Route("/report-templates", operatorOnly(params.Authz, params.ReportingHandler.MountTemplateRoutes))

				t.Route("/reports", func(r chi.Router) {
					r.Use(params.Authz.RequireRole(authz.RoleVerifier))
					params.ReportingHandler.MountRoutes(r)
				})

				t.Route("/declarations", declarantOnly(params.Authz, params.DeclarationHandler.MountRoutes))
				t.Route("/certificates", declarantOnly(params.Authz, params.DeclarationHandler.MountCertificateRoutes))
				t.Route("/monitoring-plans", declarantOnly(params.Authz, params.DeclarationHandler.MountPlanRoutes))
				t.Route("/authorisations", declarantOnly(params.Authz, params.DeclarationHandler.MountAuthorisationRoutes))

				// Handlers guard these internally at COMPANY_ADMIN.
				t.Route("/users", params.UsersHandler.MountRoutes)
				t.Route("/tenant", params.UsersHandler.MountTenantRoutes)
			})

			if params.JobHandler != nil {
				g.Route("/jobs", func(r chi.Router) {
					r.Use(params.Authz.RequireRole(authz.RoleSuperAdmin))
					params.JobHandler.MountRoutes(r)
				})
			}
		})
	})

	return r
}

func operatorOnly(mw authz.Middleware, mount func(chi.Router)) func(chi.Router) {
	return roleGated(mw, authz.RoleOperator, mount)
}

func declarantOnly(mw authz.Middleware, mount func(chi.Router)) func(chi.Router) {
	return roleGated(mw, authz.RoleDeclarant, mount)
}

func roleGated(mw authz.Middleware, role authz.Role, mount func(chi.Router)) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(mw.RequireRole(role))
		mount(r)
	}
}

// csrfTokenHandler hands the SPA its session-bound CSRF token. The token
// is idempotent per session so GET is safe here.
func csrfTokenHandler(csrf *shared.CSRFManager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := csrf.EnsureToken(r.Context(), sess)
		if err != nil {
			logger.Error("issue csrf token", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"csrfToken": token})
	}
}

// routeAccessHandler lets the frontend middleware ask whether the current
// role may enter a dashboard path before rendering it.
func routeAccessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || !sess.Authenticated() {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		path := r.URL.Query().Get("path")
		if path == "" {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "path query parameter is required")
			return
		}
		role, err := authz.ParseRole(sess.Identity().Role)
		if err != nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{
			"path":    path,
			"allowed": authz.CanAccessRoute(role, path),
		})
	}
}
