package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	AuthMode          string   `mapstructure:"AUTH_MODE"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret         string   `mapstructure:"JWT_SECRET"`
	JWTExpiry         string   `mapstructure:"JWT_EXPIRY"`
	SMTPHost          string   `mapstructure:"SMTP_HOST"`
	SMTPPort          int      `mapstructure:"SMTP_PORT"`
	SMTPUser          string   `mapstructure:"SMTP_USER"`
	SMTPPassword      string   `mapstructure:"SMTP_PASSWORD"`
	EmailFrom         string   `mapstructure:"EMAIL_FROM"`
	AdminEmail        string   `mapstructure:"ADMIN_EMAIL"`
	FrontendURL       string   `mapstructure:"FRONTEND_URL"`
	DevReturnResetURL bool     `mapstructure:"DEV_RETURN_RESET_URL"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // auto-detect: "" -> lookup
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_EXPIRY", "720h")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("AUTH_MODE")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_EXPIRY")
	v.BindEnv("SMTP_HOST")
	v.BindEnv("SMTP_PORT")
	v.BindEnv("SMTP_USER")
	v.BindEnv("SMTP_PASSWORD")
	v.BindEnv("EMAIL_FROM")
	v.BindEnv("ADMIN_EMAIL")
	v.BindEnv("FRONTEND_URL")
	v.BindEnv("DEV_RETURN_RESET_URL")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ReturnResetURL reports whether password-reset flows may hand the reset URL
// back in the response and tolerate email delivery failure. Always on in
// development, opt-in elsewhere via DEV_RETURN_RESET_URL.
func (c *Config) ReturnResetURL() bool {
	return c.DevReturnResetURL || c.IsDev()
}

// ResolvedAuthMode returns the effective auth mode. If AUTH_MODE is explicitly
// set, it is returned. Otherwise "lookup" is used: the middleware resolves the
// acting user from the store on every request. "claims" trusts the token's
// embedded role without a store round-trip.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	return "lookup"
}

// TokenTTL parses JWT_EXPIRY, falling back to 30 days on a malformed value.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTExpiry)
	if err != nil || d <= 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret is mandatory, and the auth mode must be one we know.
func (c *Config) Validate() error {
	if c.JWTSecret == "" && !c.IsDev() {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	mode := c.ResolvedAuthMode()
	if mode != "lookup" && mode != "claims" {
		return fmt.Errorf("AUTH_MODE must be \"lookup\" or \"claims\", got %q", mode)
	}
	if c.IsProduction() && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required in production (password reset email delivery)")
	}
	return nil
}
