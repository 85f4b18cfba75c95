package sysconfig

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/limsathya/workspace/internal/database"
	"github.com/limsathya/workspace/internal/model"
	"github.com/limsathya/workspace/internal/store"
)

func testDefaults() Defaults {
	return Defaults{
		SMTP: model.SMTPConfig{
			Host: "smtp.env.example.com", Port: 587, From: "noreply@env.example.com", Provider: "gmail",
		},
		Domains: []model.AllowedDomain{
			{Domain: "env.example.com", Status: model.DomainActive, IsPrimary: true},
		},
	}
}

func setupService(t *testing.T) (*Service, *store.DomainStore, *store.SMTPStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ds := store.NewDomainStore(db)
	ss := store.NewSMTPStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(ds, ss, testDefaults(), logger), ds, ss, db
}

func TestSMTPConfigBootstrapOnEmpty(t *testing.T) {
	svc, _, ss, _ := setupService(t)

	cfg := svc.SMTPConfig()
	if cfg.Host != "smtp.env.example.com" {
		t.Errorf("host = %q, want env default", cfg.Host)
	}

	// Bootstrap persists the default row.
	stored, err := ss.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if stored == nil {
		t.Fatal("default config should have been persisted")
	}
	if stored.Host != "smtp.env.example.com" {
		t.Errorf("stored host = %q", stored.Host)
	}
}

func TestSMTPConfigCachedWithinTTL(t *testing.T) {
	svc, _, ss, _ := setupService(t)

	base := time.Now()
	svc.now = func() time.Time { return base }

	if err := ss.Insert(model.SMTPConfig{Host: "smtp.first.com", Port: 587, From: "a@first.com"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if got := svc.SMTPConfig().Host; got != "smtp.first.com" {
		t.Fatalf("host = %q", got)
	}

	// A newer row written behind the cache's back stays invisible inside
	// the TTL window.
	if err := ss.Insert(model.SMTPConfig{Host: "smtp.second.com", Port: 587, From: "b@second.com"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	svc.now = func() time.Time { return base.Add(cacheTTL - time.Second) }
	if got := svc.SMTPConfig().Host; got != "smtp.first.com" {
		t.Errorf("host = %q, want cached smtp.first.com", got)
	}

	// Once the TTL lapses the next read refetches.
	svc.now = func() time.Time { return base.Add(cacheTTL + time.Second) }
	if got := svc.SMTPConfig().Host; got != "smtp.second.com" {
		t.Errorf("host = %q, want fresh smtp.second.com", got)
	}
}

func TestUpdateSMTPConfigInvalidatesCache(t *testing.T) {
	svc, _, _, _ := setupService(t)

	svc.SMTPConfig() // warm the cache with the bootstrap default

	next := model.SMTPConfig{Host: "smtp.updated.com", Port: 465, From: "x@updated.com", Secure: true}
	if err := svc.UpdateSMTPConfig(next); err != nil {
		t.Fatalf("update: %v", err)
	}

	// No TTL wait: the write invalidated the slot.
	if got := svc.SMTPConfig().Host; got != "smtp.updated.com" {
		t.Errorf("host = %q, want smtp.updated.com immediately after write", got)
	}
}

func TestSMTPConfigFallbackOnStoreFailure(t *testing.T) {
	svc, _, _, db := setupService(t)

	db.Close()

	cfg := svc.SMTPConfig()
	if cfg.Host != "smtp.env.example.com" {
		t.Errorf("host = %q, want env fallback", cfg.Host)
	}

	// The fallback must not populate the cache.
	if svc.smtpCache.valid {
		t.Error("fallback read must not update the cache timestamp")
	}
}

func TestAllowedDomainsBootstrapOnEmpty(t *testing.T) {
	svc, ds, _, _ := setupService(t)

	domains := svc.AllowedDomains()
	if len(domains) != 1 || domains[0].Domain != "env.example.com" {
		t.Fatalf("domains = %+v, want env default", domains)
	}

	stored, err := ds.Get("env.example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored == nil {
		t.Fatal("default domain should have been persisted")
	}
	if !stored.IsPrimary {
		t.Error("bootstrapped domain should be primary")
	}
}

func TestIsAllowedEmail(t *testing.T) {
	svc, _, _, _ := setupService(t)

	if err := svc.AddDomain("example.com", true); err != nil {
		t.Fatalf("add: %v", err)
	}

	tests := []struct {
		email string
		want  bool
	}{
		{"u@example.com", true},
		{"u@sub.example.com", true},
		{"u@deep.sub.example.com", true},
		{"u@notexample.com", false},
		{"u@example.org", false},
		{"no-at-sign", false},
		{"trailing@", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := svc.IsAllowedEmail(tt.email); got != tt.want {
			t.Errorf("IsAllowedEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestAddDomainValidation(t *testing.T) {
	svc, _, _, _ := setupService(t)

	for _, domain := range []string{"", "not a domain", "nodot", "-bad.com", "x.y@z"} {
		err := svc.AddDomain(domain, false)
		if !errors.Is(err, ErrInvalidDomain) {
			t.Errorf("AddDomain(%q) = %v, want ErrInvalidDomain", domain, err)
		}
	}

	if err := svc.AddDomain("valid-domain.co.uk", false); err != nil {
		t.Errorf("AddDomain(valid-domain.co.uk) = %v", err)
	}
}

func TestAddDomainPrimarySwap(t *testing.T) {
	svc, _, _, _ := setupService(t)

	if err := svc.AddDomain("x.com", true); err != nil {
		t.Fatalf("add x.com: %v", err)
	}
	if err := svc.AddDomain("y.com", true); err != nil {
		t.Fatalf("add y.com: %v", err)
	}

	var primaries []string
	for _, d := range svc.AllowedDomains() {
		if d.IsPrimary {
			primaries = append(primaries, d.Domain)
		}
	}
	if len(primaries) != 1 || primaries[0] != "y.com" {
		t.Errorf("primaries = %v, want exactly [y.com]", primaries)
	}

	if got := svc.PrimaryDomain(); got != "y.com" {
		t.Errorf("primary = %q, want y.com", got)
	}
}

func TestRemoveDomainInvalidatesCache(t *testing.T) {
	svc, ds, _, _ := setupService(t)

	if err := svc.AddDomain("x.com", true); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.AddDomain("y.com", false); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.RemoveDomain("y.com"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	for _, d := range svc.AllowedDomains() {
		if d.Domain == "y.com" {
			t.Error("removed domain still listed")
		}
	}

	stored, err := ds.Get("y.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored == nil || stored.Status != model.DomainRetired {
		t.Errorf("stored = %+v, want retired row", stored)
	}
}

func TestClearForcesRefetch(t *testing.T) {
	svc, ds, _, _ := setupService(t)

	svc.AllowedDomains()
	if err := ds.Upsert("behind-the-cache.com", false); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	svc.Clear()

	found := false
	for _, d := range svc.AllowedDomains() {
		if d.Domain == "behind-the-cache.com" {
			found = true
		}
	}
	if !found {
		t.Error("Clear should force the next read to hit the store")
	}
}
