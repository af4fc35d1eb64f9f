package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"credit-checkout/internal/database"

	_ "github.com/joho/godotenv/autoload"
	"gopkg.in/yaml.v3"
)

const (
	LedgerPostgres = "postgres"
	LedgerBolt     = "bolt"

	SessionRedis  = "redis"
	SessionMemory = "memory"

	// SandboxGateway selects the in-memory gateway instead of Paystack.
	SandboxGateway = "sandbox"

	secretKeyEnv = "PAYSTACK_SECRET_KEY"
)

type Config struct {
	HTTPPort int
	SiteURL  string

	LedgerDriver string
	DatabaseURL  string
	MaxDBConns   int
	BoltPath     string

	SessionBackend string
	RedisURL       string
	SessionCookie  string
	SessionTTL     time.Duration
	SecureCookies  bool
	LoginURL       string

	GatewayBaseURL  string
	GatewayTimeout  time.Duration
	ReferencePrefix string

	CORSAllowedOrigins []string
	LogLevel           string

	PendingTTL    time.Duration
	SweepInterval time.Duration

	fileSecret string
}

// configFile mirrors configs/default.yaml.
type configFile struct {
	Service struct {
		HTTPPort int    `yaml:"http_port"`
		SiteURL  string `yaml:"site_url"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`
	Ledger struct {
		Driver      string `yaml:"driver"`
		PostgresURL string `yaml:"postgres_url"`
		BoltPath    string `yaml:"bolt_path"`
	} `yaml:"ledger"`
	Session struct {
		Backend    string `yaml:"backend"`
		RedisURL   string `yaml:"redis_url"`
		Cookie     string `yaml:"cookie"`
		TTLMinutes int    `yaml:"ttl_minutes"`
		LoginURL   string `yaml:"login_url"`
	} `yaml:"session"`
	Gateway struct {
		BaseURL         string `yaml:"base_url"`
		SecretKey       string `yaml:"secret_key"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
		ReferencePrefix string `yaml:"reference_prefix"`
	} `yaml:"gateway"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

// Load resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		LedgerDriver:    LedgerPostgres,
		MaxDBConns:      20,
		BoltPath:        "credits.db",
		SessionBackend:  SessionRedis,
		SessionCookie:   "store_session",
		SessionTTL:      24 * time.Hour,
		LoginURL:        "/login",
		GatewayBaseURL:  "https://api.paystack.co",
		GatewayTimeout:  10 * time.Second,
		ReferencePrefix: "CREDIT",
		LogLevel:        "info",
		PendingTTL:      24 * time.Hour,
		SweepInterval:   5 * time.Minute,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
		applyFile(&cfg, f)
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.SiteURL = strings.TrimRight(envOrDefault("SITE_URL", cfg.SiteURL), "/")
	cfg.LedgerDriver = strings.ToLower(envOrDefault("LEDGER_DRIVER", cfg.LedgerDriver))
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = database.DSNFromEnv()
	}
	cfg.MaxDBConns = envInt("DB_MAX_CONNS", cfg.MaxDBConns)
	cfg.BoltPath = envOrDefault("BOLT_PATH", cfg.BoltPath)
	cfg.SessionBackend = strings.ToLower(envOrDefault("SESSION_BACKEND", cfg.SessionBackend))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.SessionCookie = envOrDefault("SESSION_COOKIE", cfg.SessionCookie)
	cfg.SessionTTL = time.Duration(envInt("SESSION_TTL_MINUTES", int(cfg.SessionTTL.Minutes()))) * time.Minute
	cfg.SecureCookies = envBool("SECURE_COOKIES", strings.HasPrefix(cfg.SiteURL, "https://"))
	cfg.LoginURL = envOrDefault("LOGIN_URL", cfg.LoginURL)
	cfg.GatewayBaseURL = envOrDefault("PAYSTACK_BASE_URL", cfg.GatewayBaseURL)
	cfg.GatewayTimeout = time.Duration(envInt("GATEWAY_TIMEOUT_SECONDS", int(cfg.GatewayTimeout.Seconds()))) * time.Second
	cfg.ReferencePrefix = envOrDefault("REFERENCE_PREFIX", cfg.ReferencePrefix)
	cfg.CORSAllowedOrigins = envCSV("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.PendingTTL = time.Duration(envInt("PENDING_TTL_MINUTES", int(cfg.PendingTTL.Minutes()))) * time.Minute
	cfg.SweepInterval = time.Duration(envInt("SWEEP_INTERVAL_SECONDS", int(cfg.SweepInterval.Seconds()))) * time.Second

	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("SWEEP_INTERVAL_SECONDS must be positive")
	}
	if cfg.PendingTTL <= 0 {
		return Config{}, fmt.Errorf("PENDING_TTL_MINUTES must be positive")
	}
	if cfg.GatewayTimeout <= 0 {
		return Config{}, fmt.Errorf("GATEWAY_TIMEOUT_SECONDS must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}

	switch cfg.LedgerDriver {
	case LedgerPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL or BLUEPRINT_DB_* settings")
		}
	case LedgerBolt:
		if cfg.BoltPath == "" {
			return Config{}, fmt.Errorf("missing BOLT_PATH")
		}
	default:
		return Config{}, fmt.Errorf("unknown LEDGER_DRIVER %q", cfg.LedgerDriver)
	}
	switch cfg.SessionBackend {
	case SessionRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("missing REDIS_URL")
		}
	case SessionMemory:
	default:
		return Config{}, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}

	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.SiteURL != "" {
		cfg.SiteURL = f.Service.SiteURL
	}
	if f.Service.LogLevel != "" {
		cfg.LogLevel = f.Service.LogLevel
	}
	if f.Ledger.Driver != "" {
		cfg.LedgerDriver = f.Ledger.Driver
	}
	if f.Ledger.PostgresURL != "" {
		cfg.DatabaseURL = f.Ledger.PostgresURL
	}
	if f.Ledger.BoltPath != "" {
		cfg.BoltPath = f.Ledger.BoltPath
	}
	if f.Session.Backend != "" {
		cfg.SessionBackend = f.Session.Backend
	}
	if f.Session.RedisURL != "" {
		cfg.RedisURL = f.Session.RedisURL
	}
	if f.Session.Cookie != "" {
		cfg.SessionCookie = f.Session.Cookie
	}
	if f.Session.TTLMinutes > 0 {
		cfg.SessionTTL = time.Duration(f.Session.TTLMinutes) * time.Minute
	}
	if f.Session.LoginURL != "" {
		cfg.LoginURL = f.Session.LoginURL
	}
	if f.Gateway.BaseURL != "" {
		cfg.GatewayBaseURL = f.Gateway.BaseURL
	}
	if f.Gateway.TimeoutSeconds > 0 {
		cfg.GatewayTimeout = time.Duration(f.Gateway.TimeoutSeconds) * time.Second
	}
	if f.Gateway.ReferencePrefix != "" {
		cfg.ReferencePrefix = f.Gateway.ReferencePrefix
	}
	if len(f.CORS.AllowedOrigins) > 0 {
		cfg.CORSAllowedOrigins = f.CORS.AllowedOrigins
	}
	cfg.fileSecret = f.Gateway.SecretKey
}

// Secrets returns the request-time source of the gateway credential.
func (c Config) Secrets() Secrets {
	return Secrets{fileValue: c.fileSecret}
}

// Secrets re-reads PAYSTACK_SECRET_KEY on every call so rotating or removing
// it takes effect without a restart.
type Secrets struct {
	fileValue string
}

func (s Secrets) GatewaySecret() string {
	if v := strings.TrimSpace(os.Getenv(secretKeyEnv)); v != "" {
		return v
	}
	return strings.TrimSpace(s.fileValue)
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt falls back on empty or invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
