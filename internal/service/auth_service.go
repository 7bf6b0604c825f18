package service

import (
	"context"
	"errors"
	"time"

	"github.com/waterworks/servicedesk/internal/auth"
	"github.com/waterworks/servicedesk/internal/config"
	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/repository"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

// AuthService coordinates login flows. Account provisioning lives in the
// upstream identity system; this service only verifies credentials and
// issues tenant-bound tokens.
type AuthService struct {
	customers repository.CustomerRepository
	staff     repository.StaffRepository
	tokenMgr  *auth.TokenManager
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	CustomerRepo repository.CustomerRepository
	StaffRepo    repository.StaffRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		customers: deps.CustomerRepo,
		staff:     deps.StaffRepo,
		tokenMgr:  auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}
}

// LoginCustomer authenticates a customer.
func (s *AuthService) LoginCustomer(ctx context.Context, tenantID, email, password string) (*domain.Customer, string, time.Time, error) {
	customer, err := s.customers.GetByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(customer.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(customer.ID, tenantID, domain.SubjectTypeCustomer, nil)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return customer, token, exp, nil
}

// LoginStaff authenticates staff and returns a role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, tenantID, email, password string) (*domain.Staff, string, time.Time, error) {
	member, err := s.staff.GetByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !member.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("staff inactive")
	}
	if err := auth.ComparePassword(member.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(member.ID, tenantID, domain.SubjectTypeStaff, &member.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return member, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
