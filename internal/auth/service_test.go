package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"

	"github.com/dsa-wrapper/dsa_wrapper/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		AppName:        "DsaWrapper",
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Minute,
		ChallengeTTL:   time.Minute,
	}
}

// signPersonal signs message the way a wallet's personal_sign does.
func signPersonal(t *testing.T, message string) (common.Address, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sig, err := crypto.Sign(personalHash(message), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return crypto.PubkeyToAddress(key.PublicKey), hexutil.Encode(sig)
}

func TestLoginWithSignedChallenge(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	svc := NewService(testConfig(), NewMemoryChallenges())

	ch, err := svc.Challenge(ctx, addr)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	sig, err := crypto.Sign(personalHash(ch.Message), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	pair, err := svc.Login(ctx, addr, hexutil.Encode(sig))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	got, err := svc.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != addr {
		t.Fatalf("expected caller %s got %s", addr.Hex(), got.Hex())
	}

	// The nonce is single use.
	if _, err := svc.Login(ctx, addr, hexutil.Encode(sig)); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound on replay, got %v", err)
	}
}

func TestLoginRejectsForeignSigner(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testConfig(), NewMemoryChallenges())
	victim := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	ch, err := svc.Challenge(ctx, victim)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	_, sig := signPersonal(t, ch.Message)

	if _, err := svc.Login(ctx, victim, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature got %v", err)
	}
}

func TestLoginRejectsMalformedSignature(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testConfig(), NewMemoryChallenges())
	addr := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	if _, err := svc.Challenge(ctx, addr); err != nil {
		t.Fatalf("challenge: %v", err)
	}
	if _, err := svc.Login(ctx, addr, "0x1234"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature got %v", err)
	}
}

func TestRecoverSignerAcceptsLegacyRecoveryID(t *testing.T) {
	addr, sig := signPersonal(t, "hello")
	got, err := recoverSigner("hello", sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if got != addr {
		t.Fatalf("expected %s got %s", addr.Hex(), got.Hex())
	}
}

func TestVerifyRejectsExpiredAndForgedTokens(t *testing.T) {
	cfg := testConfig()
	svc := NewService(cfg, NewMemoryChallenges())
	sub := common.HexToAddress("0x00000000000000000000000000000000000000dd").Hex()

	expired, err := SignHS256(map[string]any{"sub": sub, "exp": time.Now().Add(-time.Minute).Unix()}, []byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.Verify(expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token got %v", err)
	}

	forged, err := SignHS256(map[string]any{"sub": sub, "exp": time.Now().Add(time.Minute).Unix()}, []byte("other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.Verify(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for forged token got %v", err)
	}
}

func TestRedisChallenges(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	ctx := context.Background()
	store := NewRedisChallenges(cache)
	addr := common.HexToAddress("0x00000000000000000000000000000000000000ee")

	if err := store.Put(ctx, addr, "nonce-1", time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	nonce, err := store.Take(ctx, addr)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if nonce != "nonce-1" {
		t.Fatalf("expected nonce-1 got %s", nonce)
	}
	if _, err := store.Take(ctx, addr); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound got %v", err)
	}

	if err := store.Put(ctx, addr, "nonce-2", time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.Take(ctx, addr); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected expired challenge, got %v", err)
	}
}

func TestMemoryChallengesExpire(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallenges()
	now := time.Now()
	store.now = func() time.Time { return now }
	addr := common.HexToAddress("0x00000000000000000000000000000000000000ff")

	if err := store.Put(ctx, addr, "n", time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := store.Take(ctx, addr); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound got %v", err)
	}
}
