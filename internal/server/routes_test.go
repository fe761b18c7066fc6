package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"fruitwheel/internal/wheel"
)

func TestHealthHandler(t *testing.T) {
	// Create a minimal Fiber app for testing
	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Server is running",
		})
	})

	req, err := http.NewRequest("GET", "/health", nil)
	if err != nil {
		t.Fatalf("could not create request: %v", err)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("could not perform request: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status OK; got %v", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("could not read response body: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("could not unmarshal response: %v", err)
	}

	if result["status"] != "ok" {
		t.Errorf("expected status to be 'ok'; got %v", result["status"])
	}
}

func TestBetErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"betting closed", fmt.Errorf("wrap: %w", wheel.ErrBettingClosed), 409},
		{"insufficient balance", wheel.ErrInsufficientBalance, 409},
		{"category limit", wheel.ErrCategoryLimitExceeded, 409},
		{"validation error", fmt.Errorf("no amounts given"), 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := betErrorStatus(tt.err); got != tt.want {
				t.Errorf("betErrorStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	os.Setenv("WHEEL_BETTING_SECONDS", "30")
	os.Setenv("WHEEL_SPIN_SECONDS", "6")
	os.Setenv("WHEEL_TOP_WINNERS", "5")
	defer func() {
		os.Unsetenv("WHEEL_BETTING_SECONDS")
		os.Unsetenv("WHEEL_SPIN_SECONDS")
		os.Unsetenv("WHEEL_TOP_WINNERS")
	}()

	cfg := configFromEnv()
	if cfg.BettingDuration != 30*time.Second {
		t.Errorf("BettingDuration = %v, want 30s", cfg.BettingDuration)
	}
	if cfg.SpinDuration != 6*time.Second {
		t.Errorf("SpinDuration = %v, want 6s", cfg.SpinDuration)
	}
	if cfg.TopWinners != 5 {
		t.Errorf("TopWinners = %d, want 5", cfg.TopWinners)
	}
	// Untouched fields keep engine defaults.
	if cfg.MaxBetCategories != wheel.DefaultMaxBetCategories {
		t.Errorf("MaxBetCategories = %d, want default %d", cfg.MaxBetCategories, wheel.DefaultMaxBetCategories)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("env config failed validation: %v", err)
	}
}

func TestConfigFromEnv_IgnoresInvalidValues(t *testing.T) {
	os.Setenv("WHEEL_BETTING_SECONDS", "-5")
	os.Setenv("WHEEL_SPIN_SECONDS", "garbage")
	defer func() {
		os.Unsetenv("WHEEL_BETTING_SECONDS")
		os.Unsetenv("WHEEL_SPIN_SECONDS")
	}()

	cfg := configFromEnv()
	if cfg.BettingDuration != wheel.DefaultBettingDuration {
		t.Errorf("BettingDuration = %v, want default", cfg.BettingDuration)
	}
	if cfg.SpinDuration != wheel.DefaultSpinDuration {
		t.Errorf("SpinDuration = %v, want default", cfg.SpinDuration)
	}
}
