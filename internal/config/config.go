package config

import (
	"errors"
	"fmt"
	"os"

	"salonbook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig         `yaml:"app"`
	Database   DatabaseConfig    `yaml:"database"`
	Redis      RedisConfig       `yaml:"redis"`
	Stripe     StripeConfig      `yaml:"stripe"`
	Telegram   TelegramConfig    `yaml:"telegram"`
	Booking    BookingConfig     `yaml:"booking"`
	Monitoring MonitoringConfig  `yaml:"monitoring"`
	Logging    LoggingConfig     `yaml:"logging"`
	API        APIConfig         `yaml:"api"`
	Exports    ExportConfig      `yaml:"exports"`
	Services   []models.Service  `yaml:"services"`
	Employees  []models.Employee `yaml:"employees"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type StripeConfig struct {
	Enabled   bool   `yaml:"enabled"`
	SecretKey string `yaml:"secret_key"`
	Currency  string `yaml:"currency"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type BookingConfig struct {
	CancellationWindowHours float64 `yaml:"cancellation_window_hours"`
	ClientLeadTimeMinutes   int     `yaml:"client_lead_time_minutes"`
	ScheduleCacheTTLSeconds int     `yaml:"schedule_cache_ttl_seconds"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

// Load reads the YAML config, expanding ${ENV_VAR} references after merging
// an optional .env file.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Stripe.Enabled && (c.Stripe.SecretKey == "" || c.Stripe.SecretKey == "YOUR_STRIPE_KEY_HERE") {
		return errors.New("stripe secret key is required when stripe is enabled")
	}

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return errors.New("telegram bot token is required when telegram is enabled")
	}

	return ValidateCatalog(c.Services, c.Employees)
}

// ValidateCatalog rejects duplicate or empty catalog ids before seeding.
func ValidateCatalog(services []models.Service, employees []models.Employee) error {
	serviceIDs := make(map[string]bool)
	for _, s := range services {
		if s.ID == "" {
			return fmt.Errorf("service '%s' has an empty id", s.Name)
		}
		if serviceIDs[s.ID] {
			return fmt.Errorf("duplicate service id found: %s", s.ID)
		}
		serviceIDs[s.ID] = true
	}

	employeeIDs := make(map[string]bool)
	for _, e := range employees {
		if e.ID == "" {
			return fmt.Errorf("employee '%s' has an empty id", e.Name)
		}
		if employeeIDs[e.ID] {
			return fmt.Errorf("duplicate employee id found: %s", e.ID)
		}
		employeeIDs[e.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Stripe.Currency == "" {
		c.Stripe.Currency = "usd"
	}

	if c.Booking.CancellationWindowHours == 0 {
		c.Booking.CancellationWindowHours = models.CancellationWindowHours
	}
	if c.Booking.ClientLeadTimeMinutes == 0 {
		c.Booking.ClientLeadTimeMinutes = models.ClientLeadTimeMinutes
	}
	if c.Booking.ScheduleCacheTTLSeconds == 0 {
		c.Booking.ScheduleCacheTTLSeconds = models.ScheduleCacheTTLSeconds
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
