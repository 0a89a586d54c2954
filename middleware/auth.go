// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"prediction-bet-system/apperrors"
	"prediction-bet-system/services"
	"prediction-bet-system/utils"
)

// WalletAuthMiddleware resolves the Bearer session token and attaches the
// wallet identity to the request context. Every decode failure is the same
// Unauthorized — expired, tampered and malformed tokens are not
// distinguishable to the caller.
func WalletAuthMiddleware(sessions *services.WalletSessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.RespondError(c, apperrors.Unauthorized("missing Authorization header", "Connect your wallet to continue"))
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token == "" {
			return utils.RespondError(c, apperrors.Unauthorized("malformed Authorization header", "Connect your wallet to continue"))
		}

		claims, err := sessions.Resolve(token)
		if err != nil {
			log.Printf("🚫 [AUTH] Token rejected for %s", c.Path())
			return utils.RespondError(c, err)
		}

		c.Locals("wallet_address", claims.WalletAddress)
		c.Locals("wallet_type", claims.WalletType)
		c.Locals("session_id", claims.SessionID)

		return c.Next()
	}
}

// OptionalWalletAuth attaches the wallet identity when a valid token is
// present but lets anonymous requests through. Used on endpoints that only
// scope data to a caller when one is known.
func OptionalWalletAuth(sessions *services.WalletSessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != "" && token != authHeader {
			if claims, err := sessions.Resolve(token); err == nil {
				c.Locals("wallet_address", claims.WalletAddress)
				c.Locals("wallet_type", claims.WalletType)
				c.Locals("session_id", claims.SessionID)
			}
		}
		return c.Next()
	}
}
