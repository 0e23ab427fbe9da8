package driving

import (
	"context"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
)

// AuthService authenticates administrators
type AuthService interface {
	// IssueToken checks the admin credentials and returns a bearer token
	IssueToken(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken validates a bearer token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
}
