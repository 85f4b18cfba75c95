package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/limsathya/workspace/internal/model"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	DBPath   string `env:"WORKSPACE_DB_PATH" envDefault:"workspace.db" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// AdminEmail is the single designated administrator address; privileged
	// endpoints compare the session user's email against it.
	AdminEmail string `env:"ADMIN_EMAIL" envDefault:"admin@limsathya.com" validate:"required,email"`

	// AllowedEmailDomains seeds the allowlist and serves as the read-path
	// fallback when the store is unreachable.
	AllowedEmailDomains []string `env:"ALLOWED_EMAIL_DOMAINS" envSeparator:"," envDefault:"limsathya.com" validate:"min=1,dive,fqdn"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587" validate:"min=1,max=65535"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"noreply@limsathya.com" validate:"email"`
	SMTPSecure   bool   `env:"SMTP_SECURE"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Production() bool {
	return c.Env == "production"
}

// DefaultSMTP returns the environment-derived SMTP configuration used when
// the store holds no row or cannot be reached.
func (c *Config) DefaultSMTP() model.SMTPConfig {
	return model.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
		Secure:   c.SMTPSecure,
		Provider: "gmail",
	}
}

// DefaultDomains returns the environment-derived allowlist; the first entry
// is primary.
func (c *Config) DefaultDomains() []model.AllowedDomain {
	domains := make([]model.AllowedDomain, 0, len(c.AllowedEmailDomains))
	for i, d := range c.AllowedEmailDomains {
		domains = append(domains, model.AllowedDomain{
			Domain:    d,
			Status:    model.DomainActive,
			IsPrimary: i == 0,
		})
	}
	return domains
}
