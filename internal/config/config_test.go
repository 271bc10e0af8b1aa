package config

import (
	"os"
	"path/filepath"
	"testing"

	"salonbook/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
app:
  name: "salonbook"
database:
  path: "test.db"
stripe:
  enabled: true
  secret_key: "${STRIPE_KEY}"
services:
  - id: "svc-1"
    name: "Haircut"
    duration_minutes: 30
    price: 10000
employees:
  - id: "emp-1"
    name: "Alice"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	t.Setenv("STRIPE_KEY", "sk_test_123")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Stripe.SecretKey != "sk_test_123" {
		t.Errorf("expected expanded stripe key, got %s", cfg.Stripe.SecretKey)
	}
	if len(cfg.Services) != 1 || cfg.Services[0].ID != "svc-1" {
		t.Errorf("expected 1 service with id svc-1")
	}
	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default http port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.Stripe.Currency != "usd" {
		t.Errorf("expected default currency usd, got %s", cfg.Stripe.Currency)
	}
	if cfg.Booking.CancellationWindowHours != models.CancellationWindowHours {
		t.Errorf("expected default cancellation window, got %v", cfg.Booking.CancellationWindowHours)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Database:  DatabaseConfig{Path: "path"},
				Services:  []models.Service{{ID: "svc-1", Name: "Haircut"}},
				Employees: []models.Employee{{ID: "emp-1", Name: "Alice"}},
			},
			wantErr: false,
		},
		{
			name:    "missing database path",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "stripe enabled without key",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Stripe:   StripeConfig{Enabled: true},
			},
			wantErr: true,
		},
		{
			name: "telegram enabled without token",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Telegram: TelegramConfig{Enabled: true},
			},
			wantErr: true,
		},
		{
			name: "duplicate service id",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Services: []models.Service{
					{ID: "svc-1", Name: "Haircut"},
					{ID: "svc-1", Name: "Styling"},
				},
			},
			wantErr: true,
		},
		{
			name: "empty employee id",
			cfg: Config{
				Database:  DatabaseConfig{Path: "path"},
				Employees: []models.Employee{{Name: "Alice"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
