package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
)

// DefaultTokenTTL is the lifetime of issued admin tokens
const DefaultTokenTTL = 12 * time.Hour

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// authService issues and validates administrator tokens.
// There is a single administrator configured at startup.
type authService struct {
	authAdapter   driven.AuthAdapter
	adminUsername string
	adminHash     string
	tokenTTL      time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(
	authAdapter driven.AuthAdapter,
	adminUsername string,
	adminPasswordHash string,
	tokenTTL time.Duration,
) driving.AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &authService{
		authAdapter:   authAdapter,
		adminUsername: adminUsername,
		adminHash:     adminPasswordHash,
		tokenTTL:      tokenTTL,
	}
}

// IssueToken checks the administrator credentials and returns a signed token
func (s *authService) IssueToken(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	if s.adminHash == "" {
		return nil, domain.ErrUnauthorized
	}

	if subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.adminUsername)) != 1 {
		return nil, domain.ErrInvalidCredentials
	}
	if !s.authAdapter.VerifyPassword(req.Password, s.adminHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return IssueAdminToken(s.authAdapter, s.adminUsername, s.tokenTTL)
}

// ValidateToken validates a JWT token and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.authAdapter.ParseToken(token)
	if errors.Is(err, domain.ErrTokenExpired) {
		return nil, domain.ErrTokenExpired
	}
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	if claims.IsExpired() {
		return nil, domain.ErrTokenExpired
	}
	if claims.Role != domain.RoleAdmin {
		return nil, domain.ErrUnauthorized
	}

	return &domain.AuthContext{
		Subject:   claims.Subject,
		Role:      claims.Role,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}

// IssueAdminToken signs an admin token for subject without a password check.
// Used by the token command.
func IssueAdminToken(adapter driven.AuthAdapter, subject string, ttl time.Duration) (*domain.LoginResponse, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	token, err := adapter.GenerateToken(&domain.TokenClaims{
		Subject:   subject,
		Role:      domain.RoleAdmin,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}
	return &domain.LoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}
