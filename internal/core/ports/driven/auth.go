package driven

import "github.com/custodia-labs/chimp-sync/internal/core/domain"

// AuthAdapter handles the cryptographic side of admin authentication.
type AuthAdapter interface {
	// VerifyPassword compares a password with a bcrypt hash
	VerifyPassword(password, hash string) bool

	// Token operations
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}
