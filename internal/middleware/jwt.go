package middleware

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"github.com/dsa-wrapper/dsa_wrapper/internal/auth"
)

const callerKey = "caller"

// JWTAuth returns a middleware that validates bearer access tokens and stores
// the authenticated wallet address for downstream handlers.
func JWTAuth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		caller, err := svc.Verify(tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(callerKey, caller)
		return c.Next()
	}
}

// Caller returns the address set by JWTAuth.
func Caller(c *fiber.Ctx) (common.Address, bool) {
	caller, ok := c.Locals(callerKey).(common.Address)
	return caller, ok
}
