package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/platform/httpx"
	"github.com/cbamflow/cbamflow/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/register", h.handleRegister)
	r.Post("/change-password", h.handleChangePassword)
	r.Get("/tenants", h.listTenants)
	r.Get("/me", h.currentUser)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type userPayload struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       authz.Role `json:"role"`
	TenantID   string     `json:"tenantId,omitempty"`
	TenantName string     `json:"tenantName,omitempty"`
}

type sessionResponse struct {
	User userPayload `json:"user"`
	Menu authz.Menu  `json:"menu"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	user, tenant, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.UserSafeMessage(shared.ErrInvalidCredentials))
		return
	}

	identity := shared.Identity{
		UserID:      user.ID,
		Role:        string(user.Role),
		Permissions: authz.PermissionsForRole(user.Role),
	}
	if tenant != nil {
		identity.TenantID = tenant.ID
		identity.TenantName = tenant.Name
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("login without session in context")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetIdentity(identity)

	httpx.JSON(w, http.StatusOK, sessionResponse{
		User: userPayload{
			ID:         user.ID,
			Name:       user.Name,
			Email:      user.Email,
			Role:       user.Role,
			TenantID:   identity.TenantID,
			TenantName: identity.TenantName,
		},
		Menu: authz.MenuForRole(user.Role),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessionManager.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input RegisterInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, ErrWeakPassword):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "password needs at least one uppercase letter and one digit")
		case errors.Is(err, ErrInvalidTenant):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid tenant selection")
		case errors.Is(err, ErrEmailTaken):
			httpx.Problem(w, http.StatusConflict, "Duplicate", "this e-mail address is already registered")
		default:
			h.logger.Error("register user", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]string{"id": user.ID})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmNewPassword" validate:"required,eqfield=NewPassword"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || !sess.Authenticated() {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	identity := sess.Identity()
	if err := h.service.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrWeakPassword):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "password needs at least one uppercase letter and one digit")
		case errors.Is(err, shared.ErrInvalidCredentials):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "current password is incorrect")
		default:
			h.logger.Error("change password", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.service.ActiveTenants(r.Context())
	if err != nil {
		h.logger.Error("list tenants", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	type tenantPayload struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Slug   string `json:"slug"`
		Domain string `json:"domain"`
	}
	out := make([]tenantPayload, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, tenantPayload{ID: t.ID, Name: t.Name, Slug: t.Slug, Domain: t.Domain})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || !sess.Authenticated() {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	identity := sess.Identity()
	role := authz.Role(identity.Role)
	httpx.JSON(w, http.StatusOK, sessionResponse{
		User: userPayload{
			ID:         identity.UserID,
			Role:       role,
			TenantID:   identity.TenantID,
			TenantName: identity.TenantName,
		},
		Menu: authz.MenuForRole(role),
	})
}

func validationDetail(err error) string {
	return httpx.ValidationDetail(err)
}
