package auth

import (
	"context"
	"strings"
)

// ResolveTenantByEmail resolves the tenant for an e-mail address by its
// domain. Legacy tenant records store the domain without dots
// (ecosfercomtr), so both spellings are tried. Falls back to the user's
// stored tenant assignment when no domain matches.
func (s *Service) ResolveTenantByEmail(ctx context.Context, email string) (*Tenant, error) {
	_, domain, found := strings.Cut(normalizeEmail(email), "@")
	if !found || domain == "" {
		return nil, ErrInvalidTenant
	}

	candidates := []string{domain, strings.ReplaceAll(domain, ".", "")}
	tenant, err := s.repo.FindActiveTenantByDomain(ctx, candidates)
	if err == nil {
		return tenant, nil
	}

	user, userErr := s.repo.FindUserByEmail(ctx, normalizeEmail(email))
	if userErr == nil && user.TenantID != "" {
		return s.repo.FindTenantByID(ctx, user.TenantID)
	}
	return nil, err
}

// ResolveTenantBySlug resolves a tenant by slug, for registration and
// admin operations.
func (s *Service) ResolveTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return s.repo.FindTenantBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

// ActiveTenants lists every active tenant for the registration dropdown
// and the admin panel.
func (s *Service) ActiveTenants(ctx context.Context) ([]Tenant, error) {
	return s.repo.ListActiveTenants(ctx)
}
