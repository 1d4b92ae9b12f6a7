package wrapper

import (
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/dsa-wrapper/dsa_wrapper/internal/chain"
	"github.com/dsa-wrapper/dsa_wrapper/internal/dsa"
	"github.com/dsa-wrapper/dsa_wrapper/internal/ledger"
	"github.com/dsa-wrapper/dsa_wrapper/internal/middleware"
)

// Handler exposes wrapper HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wrapper HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type authorityRequest struct {
	Address string `json:"address"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type authorityResponse struct {
	AccountID   string   `json:"account_id"`
	Authorities []string `json:"authorities"`
}

type balanceResponse struct {
	AccountID  string           `json:"account_id"`
	Asset      string           `json:"asset"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Balance    decimal.Decimal  `json:"balance"`
	MovementID string           `json:"movement_id,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

type movementResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
	Actor     string          `json:"actor"`
	CreatedAt time.Time       `json:"created_at"`
}

// Owner returns the wrapper owner and the wrapper's own address.
func (h *Handler) Owner(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"owner":   h.service.Owner().Hex(),
		"wrapper": h.service.Address().Hex(),
	})
}

// Authorities lists the account's current authority set.
func (h *Handler) Authorities(c *fiber.Ctx) error {
	account, err := accountParam(c)
	if err != nil {
		return err
	}
	authorities, err := h.service.Authorities(c.UserContext(), account)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toAuthorityResponse(AuthorityResult{Account: account, Authorities: authorities}))
}

// AddAuthority grants authority over the account to the address in the body.
func (h *Handler) AddAuthority(c *fiber.Ctx) error {
	caller, account, err := callerAndAccount(c)
	if err != nil {
		return err
	}
	var req authorityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	identity, err := parseAddress(req.Address)
	if err != nil {
		return err
	}
	res, err := h.service.AddAuthority(c.UserContext(), caller, account, identity)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toAuthorityResponse(res))
}

// RemoveAuthority revokes the address in the path.
func (h *Handler) RemoveAuthority(c *fiber.Ctx) error {
	caller, account, err := callerAndAccount(c)
	if err != nil {
		return err
	}
	identity, err := parseAddress(c.Params("address"))
	if err != nil {
		return err
	}
	res, err := h.service.RemoveAuthority(c.UserContext(), caller, account, identity)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toAuthorityResponse(res))
}

// Balance returns the recorded deposits of an asset.
func (h *Handler) Balance(c *fiber.Ctx) error {
	account, err := accountParam(c)
	if err != nil {
		return err
	}
	asset, err := ledger.ParseAsset(c.Params("asset"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	balance, err := h.service.BalanceOf(c.UserContext(), account, asset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(balanceResponse{
		AccountID: account.String(),
		Asset:     asset.String(),
		Balance:   balance,
		Timestamp: time.Now().UTC(),
	})
}

// History lists the movements of an asset on the account.
func (h *Handler) History(c *fiber.Ctx) error {
	account, err := accountParam(c)
	if err != nil {
		return err
	}
	asset, err := ledger.ParseAsset(c.Params("asset"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	movements, err := h.service.History(c.UserContext(), account, asset)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, movementResponse{
			ID:        m.ID,
			Kind:      m.Kind,
			Amount:    m.Amount,
			Balance:   m.Balance,
			Actor:     m.Actor.Hex(),
			CreatedAt: m.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id": account.String(),
		"asset":      asset.String(),
		"movements":  out,
	})
}

// DepositEther moves native currency from the caller into the account.
func (h *Handler) DepositEther(c *fiber.Ctx) error {
	return h.move(c, http.StatusCreated, func(caller common.Address, account dsa.AccountID, amount decimal.Decimal) (BalanceResult, error) {
		return h.service.DepositEther(c.UserContext(), caller, account, amount)
	})
}

// WithdrawEther releases native currency from the account to the owner.
func (h *Handler) WithdrawEther(c *fiber.Ctx) error {
	return h.move(c, http.StatusOK, func(caller common.Address, account dsa.AccountID, amount decimal.Decimal) (BalanceResult, error) {
		return h.service.WithdrawEther(c.UserContext(), caller, account, amount)
	})
}

// DepositToken pulls approved tokens from the caller into the account.
func (h *Handler) DepositToken(c *fiber.Ctx) error {
	token, err := parseAddress(c.Params("token"))
	if err != nil {
		return err
	}
	return h.move(c, http.StatusCreated, func(caller common.Address, account dsa.AccountID, amount decimal.Decimal) (BalanceResult, error) {
		return h.service.DepositErc20(c.UserContext(), caller, account, amount, token)
	})
}

// WithdrawToken releases tokens from the account to the owner.
func (h *Handler) WithdrawToken(c *fiber.Ctx) error {
	token, err := parseAddress(c.Params("token"))
	if err != nil {
		return err
	}
	return h.move(c, http.StatusOK, func(caller common.Address, account dsa.AccountID, amount decimal.Decimal) (BalanceResult, error) {
		return h.service.WithdrawErc20(c.UserContext(), caller, account, amount, token)
	})
}

func (h *Handler) move(c *fiber.Ctx, status int, op func(common.Address, dsa.AccountID, decimal.Decimal) (BalanceResult, error)) error {
	caller, account, err := callerAndAccount(c)
	if err != nil {
		return err
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := op(caller, account, req.Amount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(status).JSON(balanceResponse{
		AccountID:  res.Account.String(),
		Asset:      res.Asset.String(),
		Amount:     &res.Amount,
		Balance:    res.Balance,
		MovementID: res.MovementID,
		Timestamp:  time.Now().UTC(),
	})
}

func callerAndAccount(c *fiber.Ctx) (common.Address, dsa.AccountID, error) {
	caller, ok := middleware.Caller(c)
	if !ok {
		return common.Address{}, 0, fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	account, err := accountParam(c)
	if err != nil {
		return common.Address{}, 0, err
	}
	return caller, account, nil
}

func accountParam(c *fiber.Ctx) (dsa.AccountID, error) {
	account, err := dsa.ParseAccountID(c.Params("accountId"))
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	return account, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fiber.NewError(http.StatusBadRequest, "invalid address")
	}
	return common.HexToAddress(s), nil
}

func toAuthorityResponse(res AuthorityResult) authorityResponse {
	out := authorityResponse{AccountID: res.Account.String(), Authorities: make([]string, len(res.Authorities))}
	for i, a := range res.Authorities {
		out.Authorities[i] = a.Hex()
	}
	return out
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInsufficientTokenBalance):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidAddress):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, dsa.ErrUnknownAccount), errors.Is(err, chain.ErrUnknownToken):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrExternalTransferFailed):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
