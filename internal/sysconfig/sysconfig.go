// Package sysconfig serves system configuration (SMTP settings and the email
// domain allowlist) through a time-bounded in-process cache over the
// persistent store. Reads never fail: if the store is unreachable they fall
// back to environment-derived defaults. Writes invalidate the corresponding
// cache slot and surface their errors.
package sysconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/limsathya/workspace/internal/metrics"
	"github.com/limsathya/workspace/internal/model"
	"github.com/limsathya/workspace/internal/store"
)

// cacheTTL bounds how stale a cached resource may get before the next read
// refetches it from the store.
const cacheTTL = 5 * time.Minute

var ErrInvalidDomain = errors.New("invalid domain format")

// Defaults carries the environment-derived fallback values used when the
// store is empty or unreachable.
type Defaults struct {
	SMTP    model.SMTPConfig
	Domains []model.AllowedDomain
}

type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
	valid     bool
}

func (e *cacheEntry[T]) fresh(now time.Time) bool {
	return e.valid && now.Sub(e.fetchedAt) < cacheTTL
}

type Service struct {
	domains  *store.DomainStore
	smtp     *store.SMTPStore
	defaults Defaults
	validate *validator.Validate
	logger   *slog.Logger

	mu          sync.Mutex
	smtpCache   cacheEntry[model.SMTPConfig]
	domainCache cacheEntry[[]model.AllowedDomain]
	now         func() time.Time
}

func New(domains *store.DomainStore, smtp *store.SMTPStore, defaults Defaults, logger *slog.Logger) *Service {
	return &Service{
		domains:  domains,
		smtp:     smtp,
		defaults: defaults,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// SMTPConfig returns the current SMTP settings. Cached reads are served until
// the TTL lapses; an empty store bootstraps and persists the default config;
// a failing store falls back to the default without touching the cache
// timestamp, so the next read retries sooner than the TTL.
func (s *Service) SMTPConfig() model.SMTPConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.smtpCache.fresh(now) {
		metrics.ConfigCacheLookupsTotal.WithLabelValues("smtp", "hit").Inc()
		return s.smtpCache.value
	}

	cfg, err := s.smtp.Latest()
	if err != nil {
		metrics.ConfigCacheLookupsTotal.WithLabelValues("smtp", "fallback").Inc()
		s.logger.Error("fetch smtp config, using env defaults", "error", err)
		return s.defaults.SMTP
	}

	if cfg == nil {
		// Bootstrap-on-empty: persist the env-derived default so later
		// updates have a row to mask passwords against.
		if err := s.smtp.Insert(s.defaults.SMTP); err != nil {
			s.logger.Error("bootstrap default smtp config", "error", err)
		}
		cfg = &s.defaults.SMTP
	}

	metrics.ConfigCacheLookupsTotal.WithLabelValues("smtp", "refresh").Inc()
	s.smtpCache = cacheEntry[model.SMTPConfig]{value: *cfg, fetchedAt: now, valid: true}
	return *cfg
}

// UpdateSMTPConfig appends a new configuration row and invalidates the cache
// slot. The next read refetches from the store rather than trusting the
// in-flight value.
func (s *Service) UpdateSMTPConfig(cfg model.SMTPConfig) error {
	if err := s.smtp.Insert(cfg); err != nil {
		return fmt.Errorf("update smtp config: %w", err)
	}

	s.mu.Lock()
	s.smtpCache = cacheEntry[model.SMTPConfig]{}
	s.mu.Unlock()
	return nil
}

// AllowedDomains returns the active allowlist, primary entry first.
func (s *Service) AllowedDomains() []model.AllowedDomain {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allowedDomainsLocked()
}

func (s *Service) allowedDomainsLocked() []model.AllowedDomain {
	now := s.now()
	if s.domainCache.fresh(now) {
		metrics.ConfigCacheLookupsTotal.WithLabelValues("domains", "hit").Inc()
		return s.domainCache.value
	}

	domains, err := s.domains.ListActive()
	if err != nil {
		metrics.ConfigCacheLookupsTotal.WithLabelValues("domains", "fallback").Inc()
		s.logger.Error("fetch allowed domains, using env defaults", "error", err)
		return s.defaults.Domains
	}

	if len(domains) == 0 {
		for _, d := range s.defaults.Domains {
			if err := s.domains.EnsureExists(d); err != nil {
				s.logger.Error("bootstrap default domain", "domain", d.Domain, "error", err)
			}
		}
		domains = s.defaults.Domains
	}

	metrics.ConfigCacheLookupsTotal.WithLabelValues("domains", "refresh").Inc()
	s.domainCache = cacheEntry[[]model.AllowedDomain]{value: domains, fetchedAt: now, valid: true}
	return domains
}

// PrimaryDomain returns the domain flagged primary, or the first default
// when no entry carries the flag.
func (s *Service) PrimaryDomain() string {
	for _, d := range s.AllowedDomains() {
		if d.IsPrimary {
			return d.Domain
		}
	}
	if len(s.defaults.Domains) > 0 {
		return s.defaults.Domains[0].Domain
	}
	return ""
}

// IsAllowedEmail reports whether the email's domain part matches an active
// allowlist entry exactly or as a subdomain. Emails without a domain part
// are never allowed.
func (s *Service) IsAllowedEmail(email string) bool {
	_, domain, found := strings.Cut(email, "@")
	if !found || domain == "" {
		return false
	}

	for _, d := range s.AllowedDomains() {
		if domain == d.Domain || strings.HasSuffix(domain, "."+d.Domain) {
			return true
		}
	}
	return false
}

// AddDomain validates the domain name, then activates it with the requested
// primary flag. Promoting a new primary clears the old one in the same store
// transaction. Retired entries are reactivated rather than duplicated.
func (s *Service) AddDomain(domain string, isPrimary bool) error {
	if err := s.validate.Var(domain, "required,fqdn"); err != nil {
		return ErrInvalidDomain
	}

	if err := s.domains.Upsert(domain, isPrimary); err != nil {
		return fmt.Errorf("add domain: %w", err)
	}

	s.mu.Lock()
	s.domainCache = cacheEntry[[]model.AllowedDomain]{}
	s.mu.Unlock()
	return nil
}

// RemoveDomain retires the entry. Retiring the primary domain is permitted
// here; any guard against it belongs to the caller.
func (s *Service) RemoveDomain(domain string) error {
	if err := s.domains.Retire(domain); err != nil {
		return fmt.Errorf("remove domain: %w", err)
	}

	s.mu.Lock()
	s.domainCache = cacheEntry[[]model.AllowedDomain]{}
	s.mu.Unlock()
	return nil
}

// Clear resets both cache slots. Tests use it to force refetches.
func (s *Service) Clear() {
	s.mu.Lock()
	s.smtpCache = cacheEntry[model.SMTPConfig]{}
	s.domainCache = cacheEntry[[]model.AllowedDomain]{}
	s.mu.Unlock()
}
