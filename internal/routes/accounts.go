package routes

import (
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"github.com/dsa-wrapper/dsa_wrapper/internal/dsa"
	"github.com/dsa-wrapper/dsa_wrapper/internal/middleware"
)

// RegisterAccountRoutes exposes account provisioning for the signed-in caller.
// New accounts trust the caller and the wrapper so ledger operations work
// immediately.
func RegisterAccountRoutes(r fiber.Router, registry *dsa.MemoryRegistry, wrapperAddr common.Address, logger *slog.Logger) {
	r.Post("/accounts", func(c *fiber.Ctx) error {
		caller, ok := middleware.Caller(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		id, addr, err := registry.Build(c.UserContext(), caller, wrapperAddr)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		if logger != nil {
			logger.Info("account.build completed",
				slog.String("account_id", id.String()),
				slog.String("authority", caller.Hex()),
				slog.String("address", addr.Hex()),
				slog.Int("status", http.StatusCreated),
			)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"account_id": id.String(),
			"address":    addr.Hex(),
		})
	})

	r.Get("/me/accounts", func(c *fiber.Ctx) error {
		caller, ok := middleware.Caller(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		ids := registry.Accounts(caller)
		out := make([]fiber.Map, 0, len(ids))
		for _, id := range ids {
			addr, err := registry.AccountAddress(c.UserContext(), id)
			if err != nil {
				return fiber.NewError(http.StatusInternalServerError, err.Error())
			}
			out = append(out, fiber.Map{"account_id": id.String(), "address": addr.Hex()})
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"caller":   caller.Hex(),
			"accounts": out,
		})
	})
}
