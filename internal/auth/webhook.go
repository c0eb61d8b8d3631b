package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/incident-hub/pkg/util/errorutil"
)

// WebhookTokenHeader carries the shared secret monitoring tools send.
const WebhookTokenHeader = "X-Webhook-Token"

// WebhookGuard checks the shared webhook token against a bcrypt hash. An empty
// hash leaves webhooks open.
func WebhookGuard(tokenHash string) fiber.Handler {
	tokenHash = strings.TrimSpace(tokenHash)
	return func(c *fiber.Ctx) error {
		if tokenHash == "" {
			return c.Next()
		}
		token := strings.TrimSpace(c.Get(WebhookTokenHeader))
		if token == "" {
			return apperrors.NewUnauthorized("missing webhook token")
		}
		if err := CompareSecret(tokenHash, token); err != nil {
			return apperrors.NewUnauthorized("invalid webhook token")
		}
		return c.Next()
	}
}
