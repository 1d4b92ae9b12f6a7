package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dsa-wrapper/dsa_wrapper/internal/wrapper"
)

// RegisterWrapperRoutes wires authority management and ledger endpoints.
func RegisterWrapperRoutes(r fiber.Router, h *wrapper.Handler) {
	accounts := r.Group("/accounts/:accountId")
	accounts.Get("/authorities", h.Authorities)
	accounts.Post("/authorities", h.AddAuthority)
	accounts.Delete("/authorities/:address", h.RemoveAuthority)
	accounts.Get("/balances/:asset", h.Balance)
	accounts.Get("/history/:asset", h.History)
	accounts.Post("/ether/deposit", h.DepositEther)
	accounts.Post("/ether/withdraw", h.WithdrawEther)
	accounts.Post("/tokens/:token/deposit", h.DepositToken)
	accounts.Post("/tokens/:token/withdraw", h.WithdrawToken)
}
