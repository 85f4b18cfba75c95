// Command provision creates the database schema and seeds the initial users
// and domain allowlist. It is a one-time setup step, safe to re-run: existing
// rows are left alone.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/limsathya/workspace/config"
	"github.com/limsathya/workspace/internal/auth"
	"github.com/limsathya/workspace/internal/database"
	"github.com/limsathya/workspace/internal/logging"
	"github.com/limsathya/workspace/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logging.Setup(cfg.Env, cfg.LogLevel)

	password := os.Getenv("PROVISION_PASSWORD")
	if password == "" {
		password = "password123"
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("hash password", "error", err)
		os.Exit(1)
	}

	users := store.NewUserStore(db)
	seedUsers := []struct {
		email    string
		fullName string
	}{
		{cfg.AdminEmail, "Admin User"},
		{"user@" + cfg.AllowedEmailDomains[0], "Regular User"},
		{"test@dev." + cfg.AllowedEmailDomains[0], "Test User"},
	}

	for _, su := range seedUsers {
		existing, err := users.GetByEmail(su.email)
		if err != nil {
			slog.Error("lookup user", "email", su.email, "error", err)
			os.Exit(1)
		}
		if existing != nil {
			slog.Info("user exists, skipping", "email", su.email)
			continue
		}
		if _, err := users.Create(su.email, hash, su.fullName); err != nil {
			slog.Error("create user", "email", su.email, "error", err)
			os.Exit(1)
		}
		slog.Info("created user", "email", su.email)
	}

	domains := store.NewDomainStore(db)
	for _, d := range cfg.DefaultDomains() {
		if err := domains.EnsureExists(d); err != nil {
			slog.Error("seed domain", "domain", d.Domain, "error", err)
			os.Exit(1)
		}
		slog.Info("ensured domain", "domain", d.Domain, "primary", d.IsPrimary)
	}

	slog.Info("provisioning complete")
}
