// config/config.go
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is built once at process start and handed to every component that needs it.
type Config struct {
	Port           string `env:"PORT,default=5200"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`

	DatabaseDriver string `env:"DATABASE_DRIVER,default=postgres"` // postgres | sqlite
	DatabaseURL    string `env:"DATABASE_URL,required"`

	JWTSecret      string        `env:"JWT_SECRET,required"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL,default=720h"`

	// Optional: when set, every request must carry it in X-Gateway-Token.
	GatewayToken string `env:"GATEWAY_TOKEN"`

	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminToken    string `env:"ADMIN_TOKEN"`

	TelegramBotToken   string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAuthMaxAge time.Duration `env:"TELEGRAM_AUTH_MAX_AGE,default=24h"`
	MiniAppURL         string        `env:"MINIAPP_URL"`
	// Comma-separated Telegram ids promoted to admin on login.
	AdminTelegramIDs string `env:"ADMIN_TELEGRAM_IDS"`

	R2 R2Config
}

// R2Config holds Cloudflare R2 credentials used for evidence uploads.
type R2Config struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

// Enabled reports whether enough settings are present to talk to R2.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.AccessKeySecret != "" && r.Bucket != ""
}

// Load reads an optional .env file and decodes the environment into a Config.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules envdecode cannot express.
func (c *Config) Validate() error {
	switch strings.ToLower(c.DatabaseDriver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL must be positive")
	}
	if _, err := c.AdminIDs(); err != nil {
		return err
	}
	return nil
}

// Origins returns ALLOWED_ORIGINS normalized for Fiber's CORS config.
func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

// ResolvedAdminToken falls back to the admin password when no dedicated token is configured.
func (c *Config) ResolvedAdminToken() string {
	if c.AdminToken != "" {
		return c.AdminToken
	}
	return c.AdminPassword
}

// AdminIDs parses ADMIN_TELEGRAM_IDS.
func (c *Config) AdminIDs() ([]int64, error) {
	var ids []int64
	for _, p := range strings.Split(c.AdminTelegramIDs, ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_IDS: %q is not a telegram id", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
