package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/repository"
	apperrors "github.com/spec-kit/incident-hub/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	UserID string
	Role   domain.Role
}

// ActorID returns the caller id in the form activities record it.
func (p *Principal) ActorID() *string {
	if p == nil || p.UserID == "" {
		return nil
	}
	id := p.UserID
	return &id
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.RecipientDirectory
}

// NewAuthMiddleware constructs middleware. When users is nil the token alone
// is trusted; otherwise the user must exist and be active.
func NewAuthMiddleware(tokens *TokenManager, users repository.RecipientDirectory) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	if m.users != nil {
		user, err := m.users.GetRecipient(c.UserContext(), claims.Subject)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return apperrors.NewUnauthorized("user not found")
			}
			return apperrors.MapError(err)
		}
		if user.Status != domain.UserStatusActive {
			return apperrors.NewForbidden("user suspended")
		}
	}

	c.Locals(principalKey, &Principal{UserID: claims.Subject, Role: claims.Role})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
