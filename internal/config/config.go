package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAccessTokenExpireMinutes = 60 * 24 * 7
	defaultAlgorithm                = "HS256"
	defaultSecretKey                = "your-secret-key-change-this-in-production"
)

// Config is built once at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Auth      AuthConfig      `yaml:"auth"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	OIDC      OIDCConfig      `yaml:"oidc"`
}

type AppConfig struct {
	ProjectName string   `yaml:"project_name"`
	Version     string   `yaml:"version"`
	APIPrefix   string   `yaml:"api_prefix"`
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type AuthConfig struct {
	SecretKey                string `yaml:"secret_key"`
	Algorithm                string `yaml:"algorithm"`
	AccessTokenExpireMinutes int    `yaml:"access_token_expire_minutes"`
	CookieName               string `yaml:"cookie_name"`
	CookiePath               string `yaml:"cookie_path"`
	CookieDomain             string `yaml:"cookie_domain"`
	CookieSecure             bool   `yaml:"cookie_secure"`
}

// UsesDefaultSecret reports whether tokens would be signed with the built-in
// development key.
func (a AuthConfig) UsesDefaultSecret() bool {
	return a.SecretKey == defaultSecretKey
}

// AccessTokenTTL is the validity window of issued identity tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

type PostgresConfig struct {
	DatabaseURL string `yaml:"database_url"`
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimitConfig struct {
	LoginMax    int           `yaml:"login_max"`
	LoginWindow time.Duration `yaml:"login_window"`
}

type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

type OIDCConfig struct {
	IssuerURL    string `yaml:"issuer_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether single sign-on is configured.
func (o OIDCConfig) Enabled() bool {
	return strings.TrimSpace(o.IssuerURL) != ""
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		App: AppConfig{
			ProjectName: "Apex - Career Navigator API",
			Version:     "1.0.0",
			APIPrefix:   "/api/v1",
			Port:        "8000",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Auth: AuthConfig{
			SecretKey:                defaultSecretKey,
			Algorithm:                defaultAlgorithm,
			AccessTokenExpireMinutes: defaultAccessTokenExpireMinutes,
			CookieName:               "access_token",
			CookiePath:               "/",
			CookieSecure:             true,
		},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    "5432",
			SSLMode: "disable",
		},
		RateLimit: RateLimitConfig{
			LoginMax:    10,
			LoginWindow: time.Minute,
		},
		Log: LogConfig{
			Env:   "dev",
			Level: "info",
		},
	}
}

// Load applies defaults, then the YAML file named by CONFIG_FILE (if any),
// then environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the auth core cannot run with.
func (c Config) Validate() error {
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("config: unsupported ALGORITHM %q", c.Auth.Algorithm)
	}
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		return fmt.Errorf("config: SECRET_KEY is required")
	}
	if c.Log.Env == "prod" && c.Auth.UsesDefaultSecret() {
		return fmt.Errorf("config: SECRET_KEY must be set in prod")
	}
	if c.Auth.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("config: ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if strings.TrimSpace(c.Auth.CookieName) == "" {
		return fmt.Errorf("config: AUTH_COOKIE_NAME is required")
	}
	if c.RateLimit.LoginMax > 0 && c.RateLimit.LoginWindow <= 0 {
		return fmt.Errorf("config: LOGIN_RATE_WINDOW must be positive")
	}
	if c.OIDC.Enabled() && (c.OIDC.ClientID == "" || c.OIDC.RedirectURL == "") {
		return fmt.Errorf("config: OIDC_CLIENT_ID and OIDC_REDIRECT_URL are required when OIDC_ISSUER_URL is set")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.App.ProjectName = getenv("PROJECT_NAME", cfg.App.ProjectName)
	cfg.App.Version = getenv("VERSION", cfg.App.Version)
	cfg.App.APIPrefix = getenv("API_V1_STR", cfg.App.APIPrefix)
	cfg.App.Port = getenv("PORT", cfg.App.Port)
	if origins := os.Getenv("BACKEND_CORS_ORIGINS"); origins != "" {
		cfg.App.CORSOrigins = splitCSV(origins)
	}

	cfg.Auth.SecretKey = getenv("SECRET_KEY", cfg.Auth.SecretKey)
	cfg.Auth.Algorithm = strings.ToUpper(getenv("ALGORITHM", cfg.Auth.Algorithm))
	cfg.Auth.CookieName = getenv("AUTH_COOKIE_NAME", cfg.Auth.CookieName)
	cfg.Auth.CookiePath = getenv("AUTH_COOKIE_PATH", cfg.Auth.CookiePath)
	cfg.Auth.CookieDomain = getenv("AUTH_COOKIE_DOMAIN", cfg.Auth.CookieDomain)

	var err error
	if cfg.Auth.AccessTokenExpireMinutes, err = getenvInt("ACCESS_TOKEN_EXPIRE_MINUTES", cfg.Auth.AccessTokenExpireMinutes); err != nil {
		return err
	}
	if cfg.Auth.CookieSecure, err = getenvBool("AUTH_COOKIE_SECURE", cfg.Auth.CookieSecure); err != nil {
		return err
	}

	cfg.Postgres.DatabaseURL = getenv("DATABASE_URL", cfg.Postgres.DatabaseURL)
	cfg.Postgres.Host = getenv("PGHOST", cfg.Postgres.Host)
	cfg.Postgres.Port = getenv("PGPORT", cfg.Postgres.Port)
	cfg.Postgres.User = getenv("PGUSER", cfg.Postgres.User)
	cfg.Postgres.Password = getenv("PGPASSWORD", cfg.Postgres.Password)
	cfg.Postgres.Database = getenv("PGDATABASE", cfg.Postgres.Database)
	cfg.Postgres.SSLMode = getenv("PGSSLMODE", cfg.Postgres.SSLMode)

	cfg.Redis.Addr = getenv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getenv("REDIS_PASSWORD", cfg.Redis.Password)
	if cfg.Redis.DB, err = getenvInt("REDIS_DB", cfg.Redis.DB); err != nil {
		return err
	}

	if cfg.RateLimit.LoginMax, err = getenvInt("LOGIN_RATE_LIMIT", cfg.RateLimit.LoginMax); err != nil {
		return err
	}
	if cfg.RateLimit.LoginWindow, err = getenvDuration("LOGIN_RATE_WINDOW", cfg.RateLimit.LoginWindow); err != nil {
		return err
	}

	cfg.Log.Env = getenv("LOG_ENV", cfg.Log.Env)
	cfg.Log.Level = getenv("LOG_LEVEL", cfg.Log.Level)

	cfg.OIDC.IssuerURL = getenv("OIDC_ISSUER_URL", cfg.OIDC.IssuerURL)
	cfg.OIDC.ClientID = getenv("OIDC_CLIENT_ID", cfg.OIDC.ClientID)
	cfg.OIDC.ClientSecret = getenv("OIDC_CLIENT_SECRET", cfg.OIDC.ClientSecret)
	cfg.OIDC.RedirectURL = getenv("OIDC_REDIRECT_URL", cfg.OIDC.RedirectURL)
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return parsed, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
