package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestLoadDevDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TOKEN_ADDRESSES", "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512, ")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("OWNER_ADDRESS", "")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWTSecret != defaultDevJWTSecret {
		t.Fatalf("expected dev secret, got %q", cfg.JWTSecret)
	}
	if cfg.OwnerAddress != common.HexToAddress(defaultOwnerAddress) {
		t.Fatalf("unexpected owner %s", cfg.OwnerAddress.Hex())
	}
	if len(cfg.TokenAddresses) != 1 {
		t.Fatalf("expected one token, got %v", cfg.TokenAddresses)
	}
	if cfg.ShutdownPeriod != 3*time.Second {
		t.Fatalf("expected 3s shutdown, got %s", cfg.ShutdownPeriod)
	}
	if cfg.Address() != ":9090" {
		t.Fatalf("unexpected listen address %s", cfg.Address())
	}
}

func TestLoadRequiresInfraOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "s3cret")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing DATABASE_URL error")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("OWNER_ADDRESS", "not-an-address")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid owner error")
	}

	t.Setenv("OWNER_ADDRESS", "")
	t.Setenv("IDEMPOTENCY_TTL", "forever")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid duration error")
	}
}
