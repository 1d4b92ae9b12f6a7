// Package wrapper relays custody and authority operations to smart accounts
// on behalf of its owner, bounding every withdrawal by what it recorded as
// deposited.
package wrapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dsa-wrapper/dsa_wrapper/internal/chain"
	"github.com/dsa-wrapper/dsa_wrapper/internal/dsa"
	"github.com/dsa-wrapper/dsa_wrapper/internal/ledger"
	"github.com/dsa-wrapper/dsa_wrapper/internal/logging"
	"github.com/dsa-wrapper/dsa_wrapper/internal/notification"
)

// Config fixes the identities of a wrapper instance.
type Config struct {
	// Owner deployed the wrapper; immutable.
	Owner common.Address
	// Address is the wrapper's own identity as seen by registries and tokens.
	Address common.Address
}

// Service is the authority and ledger kernel.
type Service struct {
	owner    common.Address
	address  common.Address
	registry dsa.Registry
	tokens   chain.Directory
	ledger   ledger.Ledger
	notifier notification.Notifier
	logger   *slog.Logger
	locks    accountLocks
}

// AuthorityResult is the authority set of an account after a change.
type AuthorityResult struct {
	Account     dsa.AccountID
	Authorities []common.Address
}

// BalanceResult is the ledger entry after a deposit or withdrawal.
type BalanceResult struct {
	Account    dsa.AccountID
	Asset      ledger.Asset
	Amount     decimal.Decimal
	Balance    decimal.Decimal
	MovementID string
}

// NewService builds a wrapper. notifier and logger may be nil.
func NewService(cfg Config, registry dsa.Registry, tokens chain.Directory, led ledger.Ledger, notifier notification.Notifier, logger *slog.Logger) (*Service, error) {
	if cfg.Owner == (common.Address{}) {
		return nil, fmt.Errorf("owner: %w", ErrInvalidAddress)
	}
	if cfg.Address == (common.Address{}) {
		return nil, fmt.Errorf("wrapper address: %w", ErrInvalidAddress)
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if led == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if tokens == nil {
		tokens = chain.NewTokens()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		owner:    cfg.Owner,
		address:  cfg.Address,
		registry: registry,
		tokens:   tokens,
		ledger:   led,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// Owner returns the identity that deployed the wrapper.
func (s *Service) Owner() common.Address { return s.owner }

// Address returns the wrapper's own identity.
func (s *Service) Address() common.Address { return s.address }

// Authorities reads the live authority set of the account from the registry.
func (s *Service) Authorities(ctx context.Context, account dsa.AccountID) ([]common.Address, error) {
	return s.registry.Authorities(ctx, account)
}

// AddAuthority lets an existing authority of the account grant authority to identity.
// Adding a current member succeeds without change.
func (s *Service) AddAuthority(ctx context.Context, caller common.Address, account dsa.AccountID, identity common.Address) (AuthorityResult, error) {
	if identity == (common.Address{}) {
		return AuthorityResult{}, ErrInvalidAddress
	}
	unlock := s.locks.lock(account)
	defer unlock()

	if err := s.requireAuthority(ctx, caller, account); err != nil {
		return AuthorityResult{}, err
	}
	if err := s.registry.AddAuthority(ctx, account, identity); err != nil {
		return AuthorityResult{}, fmt.Errorf("add authority: %w", err)
	}
	return s.authorityChanged(ctx, notification.KindAuthorityAdded, caller, account, identity)
}

// RemoveAuthority lets an existing authority of the account revoke identity.
// Removing a non-member succeeds without change.
func (s *Service) RemoveAuthority(ctx context.Context, caller common.Address, account dsa.AccountID, identity common.Address) (AuthorityResult, error) {
	unlock := s.locks.lock(account)
	defer unlock()

	if err := s.requireAuthority(ctx, caller, account); err != nil {
		return AuthorityResult{}, err
	}
	if err := s.registry.RemoveAuthority(ctx, account, identity); err != nil {
		return AuthorityResult{}, fmt.Errorf("remove authority: %w", err)
	}
	return s.authorityChanged(ctx, notification.KindAuthorityRemoved, caller, account, identity)
}

// DepositEther moves amount of native currency from caller into the account
// and records it. Anyone may deposit.
func (s *Service) DepositEther(ctx context.Context, caller common.Address, account dsa.AccountID, amount decimal.Decimal) (BalanceResult, error) {
	if err := checkAmount(amount); err != nil {
		return BalanceResult{}, err
	}
	if err := s.registry.AcceptNative(ctx, account, caller, amount); err != nil {
		return BalanceResult{}, externalFailure(err)
	}

	p := ledger.Posting{Account: account, Asset: ledger.Native, Amount: amount, Actor: caller}
	m, err := s.ledger.Credit(ctx, p)
	if err != nil {
		if rerr := s.registry.ReleaseNative(ctx, account, amount, caller); rerr != nil {
			s.logger.Error("refund after failed credit",
				"account", account.String(), "caller", caller.Hex(), "amount", amount.String(), "error", rerr)
			return BalanceResult{}, errors.Join(fmt.Errorf("record deposit: %w", err), rerr)
		}
		return BalanceResult{}, fmt.Errorf("record deposit: %w", err)
	}
	return s.moved(ctx, notification.KindEtherDeposit, m), nil
}

// WithdrawEther releases amount of native currency from the account to the
// owner. The entry is decremented before the release so a re-entrant call
// observes the reduced balance.
func (s *Service) WithdrawEther(ctx context.Context, caller common.Address, account dsa.AccountID, amount decimal.Decimal) (BalanceResult, error) {
	m, err := s.debit(ctx, caller, account, ledger.Native, amount)
	if err != nil {
		return BalanceResult{}, err
	}
	if err := s.registry.ReleaseNative(ctx, account, amount, caller); err != nil {
		return BalanceResult{}, s.revert(ctx, m, err)
	}
	return s.moved(ctx, notification.KindEtherWithdraw, m), nil
}

// DepositErc20 pulls amount of token from caller into the account using the
// allowance caller granted the wrapper, and records it.
func (s *Service) DepositErc20(ctx context.Context, caller common.Address, account dsa.AccountID, amount decimal.Decimal, token common.Address) (BalanceResult, error) {
	if err := checkAmount(amount); err != nil {
		return BalanceResult{}, err
	}
	tok, err := s.tokens.Lookup(token)
	if err != nil {
		return BalanceResult{}, err
	}
	custody, err := s.registry.AccountAddress(ctx, account)
	if err != nil {
		return BalanceResult{}, err
	}
	if err := tok.TransferFrom(ctx, s.address, caller, custody, amount); err != nil {
		return BalanceResult{}, externalFailure(err)
	}

	p := ledger.Posting{Account: account, Asset: ledger.TokenAsset(token), Amount: amount, Actor: caller}
	m, err := s.ledger.Credit(ctx, p)
	if err != nil {
		if rerr := s.registry.ReleaseToken(ctx, account, token, amount, caller); rerr != nil {
			s.logger.Error("refund after failed credit",
				"account", account.String(), "caller", caller.Hex(), "token", token.Hex(), "amount", amount.String(), "error", rerr)
			return BalanceResult{}, errors.Join(fmt.Errorf("record deposit: %w", err), rerr)
		}
		return BalanceResult{}, fmt.Errorf("record deposit: %w", err)
	}
	return s.moved(ctx, notification.KindTokenDeposit, m), nil
}

// WithdrawErc20 releases amount of token from the account to the owner.
func (s *Service) WithdrawErc20(ctx context.Context, caller common.Address, account dsa.AccountID, amount decimal.Decimal, token common.Address) (BalanceResult, error) {
	m, err := s.debit(ctx, caller, account, ledger.TokenAsset(token), amount)
	if err != nil {
		return BalanceResult{}, err
	}
	if err := s.registry.ReleaseToken(ctx, account, token, amount, caller); err != nil {
		return BalanceResult{}, s.revert(ctx, m, err)
	}
	return s.moved(ctx, notification.KindTokenWithdraw, m), nil
}

// BalanceOf returns the recorded deposits of asset for the account.
func (s *Service) BalanceOf(ctx context.Context, account dsa.AccountID, asset ledger.Asset) (decimal.Decimal, error) {
	return s.ledger.Balance(ctx, account, asset)
}

// History lists the movements recorded for the account and asset.
func (s *Service) History(ctx context.Context, account dsa.AccountID, asset ledger.Asset) ([]ledger.Movement, error) {
	return s.ledger.History(ctx, account, asset)
}

func (s *Service) requireAuthority(ctx context.Context, caller common.Address, account dsa.AccountID) error {
	authorities, err := s.registry.Authorities(ctx, account)
	if err != nil {
		return err
	}
	for _, a := range authorities {
		if a == caller {
			return nil
		}
	}
	s.logger.Warn("authority check failed", "account", account.String(), "caller", caller.Hex())
	return ErrPermissionDenied
}

func (s *Service) debit(ctx context.Context, caller common.Address, account dsa.AccountID, asset ledger.Asset, amount decimal.Decimal) (ledger.Movement, error) {
	if caller != s.owner {
		return ledger.Movement{}, ErrNotOwner
	}
	if err := checkAmount(amount); err != nil {
		return ledger.Movement{}, err
	}
	m, err := s.ledger.Debit(ctx, ledger.Posting{Account: account, Asset: asset, Amount: amount, Actor: caller})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			s.logger.Warn("withdrawal exceeds recorded deposits",
				"account", account.String(), "asset", asset.String(), "amount", amount.String())
			if asset.IsNative() {
				return ledger.Movement{}, ErrInsufficientFunds
			}
			return ledger.Movement{}, ErrInsufficientTokenBalance
		}
		return ledger.Movement{}, err
	}
	return m, nil
}

// revert undoes a debit whose external release failed.
func (s *Service) revert(ctx context.Context, m ledger.Movement, cause error) error {
	failure := externalFailure(cause)
	if err := s.ledger.Revert(ctx, m); err != nil {
		s.logger.Error("revert withdrawal",
			"account", m.Account.String(), "asset", m.Asset.String(), "movement", m.ID, "error", err)
		return errors.Join(failure, fmt.Errorf("revert withdrawal: %w", err))
	}
	return failure
}

func (s *Service) moved(ctx context.Context, kind string, m ledger.Movement) BalanceResult {
	s.logger.Info("ledger updated",
		"kind", kind,
		"account", m.Account.String(),
		"asset", m.Asset.String(),
		"amount", m.Amount.String(),
		"balance", m.Balance.String(),
		"caller", m.Actor.Hex(),
	)
	s.notify(ctx, notification.Event{
		Kind:       kind,
		Account:    m.Account.String(),
		Actor:      m.Actor.Hex(),
		Asset:      m.Asset.String(),
		Amount:     m.Amount.String(),
		Balance:    m.Balance.String(),
		OccurredAt: m.CreatedAt,
	})
	return BalanceResult{
		Account:    m.Account,
		Asset:      m.Asset,
		Amount:     m.Amount,
		Balance:    m.Balance,
		MovementID: m.ID,
	}
}

func (s *Service) authorityChanged(ctx context.Context, kind string, caller common.Address, account dsa.AccountID, identity common.Address) (AuthorityResult, error) {
	authorities, err := s.registry.Authorities(ctx, account)
	if err != nil {
		return AuthorityResult{}, err
	}
	s.logger.Info("authorities updated",
		"kind", kind, "account", account.String(), "caller", caller.Hex(), "authority", identity.Hex())

	hexes := make([]string, len(authorities))
	for i, a := range authorities {
		hexes[i] = a.Hex()
	}
	s.notify(ctx, notification.Event{
		Kind:        kind,
		Account:     account.String(),
		Actor:       caller.Hex(),
		Authority:   identity.Hex(),
		Authorities: hexes,
		OccurredAt:  time.Now().UTC(),
	})
	return AuthorityResult{Account: account, Authorities: authorities}, nil
}

func (s *Service) notify(ctx context.Context, event notification.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, event); err != nil {
		s.logger.Warn("notification failed", "kind", event.Kind, "account", event.Account, "error", err)
	}
}

// checkAmount runs before any external call so nothing moves that the ledger
// could not record exactly.
func checkAmount(amount decimal.Decimal) error {
	if ledger.CheckAmount(amount) != nil {
		return ErrInvalidAmount
	}
	return nil
}

func externalFailure(err error) error {
	if errors.Is(err, dsa.ErrUnknownAccount) || errors.Is(err, chain.ErrUnknownToken) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrExternalTransferFailed, err)
}
