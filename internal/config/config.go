package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppCfg struct {
	Env          string        `yaml:"env"`
	Port         int           `yaml:"port"`
	FrontendURL  string        `yaml:"frontend_url"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type JWTCfg struct {
	Secret            string `yaml:"secret"`
	SessionTTLMinutes int    `yaml:"sessionTTLMinutes"`
}

type MongoCfg struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisCfg struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MailCfg struct {
	BrevoAPIKey string `yaml:"brevoAPIKey"`
	FromEmail   string `yaml:"fromEmail"`
	FromName    string `yaml:"fromName"`
}

type GoogleCfg struct {
	ClientID     string `yaml:"clientID"`
	ClientSecret string `yaml:"clientSecret"`
	CallbackURL  string `yaml:"callbackURL"`
}

type SecurityCfg struct {
	ActivationTTLHours  int `yaml:"activationTTLHours"`
	ResetTTLMinutes     int `yaml:"resetTTLMinutes"`
	PasswordHashCost    int `yaml:"passwordHashCost"`
	AuthRateLimitPerMin int `yaml:"authRateLimitPerMin"`
}

type Config struct {
	App      AppCfg      `yaml:"app"`
	JWT      JWTCfg      `yaml:"jwt"`
	Mongo    MongoCfg    `yaml:"mongo"`
	Redis    RedisCfg    `yaml:"redis"`
	Mail     MailCfg     `yaml:"mail"`
	Google   GoogleCfg   `yaml:"google"`
	Security SecurityCfg `yaml:"security"`
}

// Load reads the YAML config file, applies .env / environment overrides and
// validates the result. The returned Config is treated as immutable after
// startup; everything that needs a setting receives it through a constructor.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	override := func(env string, apply func(string)) {
		if v := os.Getenv(env); v != "" {
			apply(v)
		}
	}

	override("APP_ENV", func(v string) { cfg.App.Env = v })
	override("APP_PORT", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = n
		}
	})
	override("FRONTEND_URL", func(v string) { cfg.App.FrontendURL = v })
	override("JWT_SECRET", func(v string) { cfg.JWT.Secret = v })
	override("JWT_SESSION_TTL_MINUTES", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.JWT.SessionTTLMinutes = n
		}
	})
	override("MONGO_URI", func(v string) { cfg.Mongo.URI = v })
	override("MONGO_DB", func(v string) { cfg.Mongo.Database = v })
	override("REDIS_ADDR", func(v string) { cfg.Redis.Addr = v })
	override("REDIS_PASSWORD", func(v string) { cfg.Redis.Password = v })
	override("BREVO_API_KEY", func(v string) { cfg.Mail.BrevoAPIKey = v })
	override("MAIL_FROM_EMAIL", func(v string) { cfg.Mail.FromEmail = v })
	override("MAIL_FROM_NAME", func(v string) { cfg.Mail.FromName = v })
	override("GOOGLE_CLIENT_ID", func(v string) { cfg.Google.ClientID = v })
	override("GOOGLE_CLIENT_SECRET", func(v string) { cfg.Google.ClientSecret = v })
	override("GOOGLE_CALLBACK_URL", func(v string) { cfg.Google.CallbackURL = v })
	override("ACTIVATION_TTL_HOURS", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.ActivationTTLHours = n
		}
	})
	override("RESET_TTL_MINUTES", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.ResetTTLMinutes = n
		}
	})
	override("PASSWORD_HASH_COST", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.PasswordHashCost = n
		}
	})
	override("AUTH_RATE_LIMIT_PER_MIN", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.AuthRateLimitPerMin = n
		}
	})

	cfg.applyDefaults()

	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required (set in .env or config.yaml)")
	}
	if cfg.Mongo.URI == "" {
		return nil, errors.New("MONGO_URI is required")
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 5000
	}
	if c.App.FrontendURL == "" {
		c.App.FrontendURL = "http://localhost:3000"
	}
	if c.JWT.SessionTTLMinutes == 0 {
		c.JWT.SessionTTLMinutes = 60
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "tinydesk"
	}
	if c.Security.ActivationTTLHours == 0 {
		c.Security.ActivationTTLHours = 24
	}
	if c.Security.ResetTTLMinutes == 0 {
		c.Security.ResetTTLMinutes = 30
	}
	if c.Security.AuthRateLimitPerMin == 0 {
		c.Security.AuthRateLimitPerMin = 30
	}
}

// SessionTTL returns the lifetime of issued session tokens.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.JWT.SessionTTLMinutes) * time.Minute
}

// ActivationTTL returns the lifetime of activation links.
func (c *Config) ActivationTTL() time.Duration {
	return time.Duration(c.Security.ActivationTTLHours) * time.Hour
}

// ResetTTL returns the lifetime of password reset links.
func (c *Config) ResetTTL() time.Duration {
	return time.Duration(c.Security.ResetTTLMinutes) * time.Minute
}
