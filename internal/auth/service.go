package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/dsa-wrapper/dsa_wrapper/internal/config"
)

var (
	// ErrInvalidToken is returned for malformed, forged or expired access tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Service signs callers in by wallet signature and issues access tokens whose
// subject is the caller's address.
type Service struct {
	cfg   config.Config
	store ChallengeStore
	now   func() time.Time
}

// NewService builds an auth service.
func NewService(cfg config.Config, store ChallengeStore) *Service {
	return &Service{cfg: cfg, store: store, now: time.Now}
}

// Challenge is a sign-in message the caller must sign with its wallet.
type Challenge struct {
	Address   common.Address
	Nonce     string
	Message   string
	ExpiresAt time.Time
}

// TokenPair carries an issued access token.
type TokenPair struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Challenge issues a fresh single-use nonce for address.
func (s *Service) Challenge(ctx context.Context, address common.Address) (Challenge, error) {
	nonce := uuid.NewString()
	if err := s.store.Put(ctx, address, nonce, s.cfg.ChallengeTTL); err != nil {
		return Challenge{}, fmt.Errorf("store challenge: %w", err)
	}
	return Challenge{
		Address:   address,
		Nonce:     nonce,
		Message:   s.message(address, nonce),
		ExpiresAt: s.now().Add(s.cfg.ChallengeTTL).UTC(),
	}, nil
}

// Login verifies the signature over the outstanding challenge and issues a token.
func (s *Service) Login(ctx context.Context, address common.Address, signature string) (TokenPair, error) {
	nonce, err := s.store.Take(ctx, address)
	if err != nil {
		return TokenPair{}, err
	}
	signer, err := recoverSigner(s.message(address, nonce), signature)
	if err != nil {
		return TokenPair{}, err
	}
	if signer != address {
		return TokenPair{}, ErrInvalidSignature
	}

	now := s.now()
	claims := map[string]any{
		"sub": address.Hex(),
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.AccessTokenTTL).Unix(),
	}
	signed, err := SignHS256(claims, []byte(s.cfg.JWTSecret))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: signed, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

// Verify checks an access token and returns the caller it was issued to.
func (s *Service) Verify(token string) (common.Address, error) {
	claims, err := ParseAndVerifyHS256(token, []byte(s.cfg.JWTSecret))
	if err != nil {
		return common.Address{}, ErrInvalidToken
	}
	exp, _ := claims["exp"].(float64)
	if int64(exp) <= s.now().Unix() {
		return common.Address{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if !common.IsHexAddress(sub) {
		return common.Address{}, ErrInvalidToken
	}
	return common.HexToAddress(sub), nil
}

func (s *Service) message(address common.Address, nonce string) string {
	return fmt.Sprintf("%s wants you to sign in with your account:\n%s\n\nNonce: %s", s.cfg.AppName, address.Hex(), nonce)
}
