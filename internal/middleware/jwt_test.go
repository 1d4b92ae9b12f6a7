package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"github.com/dsa-wrapper/dsa_wrapper/internal/auth"
	"github.com/dsa-wrapper/dsa_wrapper/internal/config"
)

func TestJWTAuthSetsCaller(t *testing.T) {
	cfg := config.Config{AppName: "test", JWTSecret: "secret", AccessTokenTTL: time.Minute}
	svc := auth.NewService(cfg, auth.NewMemoryChallenges())
	want := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	token, err := auth.SignHS256(map[string]any{
		"sub": want.Hex(),
		"exp": time.Now().Add(time.Minute).Unix(),
	}, []byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	app := fiber.New()
	app.Get("/me", JWTAuth(svc), func(c *fiber.Ctx) error {
		caller, ok := Caller(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(caller.Hex())
	})

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}

	req = httptest.NewRequest(fiber.MethodGet, "/me", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected %d without token got %d", fiber.StatusUnauthorized, resp.StatusCode)
	}
}
