package store

import (
	"database/sql"
	"fmt"

	"github.com/limsathya/workspace/internal/model"
)

type DomainStore struct {
	db *sql.DB
}

func NewDomainStore(db *sql.DB) *DomainStore {
	return &DomainStore{db: db}
}

func scanDomain(scanner interface{ Scan(...any) error }) (*model.AllowedDomain, error) {
	var d model.AllowedDomain
	err := scanner.Scan(&d.ID, &d.Domain, &d.Status, &d.IsPrimary)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

const domainCols = `id, domain, status, is_primary`

// ListActive returns active entries, primary first.
func (s *DomainStore) ListActive() ([]model.AllowedDomain, error) {
	rows, err := s.db.Query(
		`SELECT `+domainCols+` FROM allowed_domains WHERE status = ? ORDER BY is_primary DESC, domain`,
		model.DomainActive,
	)
	if err != nil {
		return nil, fmt.Errorf("list active domains: %w", err)
	}
	defer rows.Close()

	var domains []model.AllowedDomain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		domains = append(domains, *d)
	}
	return domains, rows.Err()
}

func (s *DomainStore) Get(domain string) (*model.AllowedDomain, error) {
	row := s.db.QueryRow(`SELECT `+domainCols+` FROM allowed_domains WHERE domain = ?`, domain)
	d, err := scanDomain(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get domain: %w", err)
	}
	return d, nil
}

// Upsert activates the entry (inserting it if new) with the requested
// primary flag. When isPrimary is set, clearing the old primary and setting
// the new one happen in a single transaction so there is never a window
// with zero or two primaries.
func (s *DomainStore) Upsert(domain string, isPrimary bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if isPrimary {
		if _, err := tx.Exec(
			`UPDATE allowed_domains SET is_primary = FALSE WHERE is_primary = TRUE AND domain != ?`,
			domain,
		); err != nil {
			return fmt.Errorf("clear primary domains: %w", err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO allowed_domains (domain, status, is_primary) VALUES (?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET status = excluded.status, is_primary = excluded.is_primary`,
		domain, model.DomainActive, isPrimary,
	); err != nil {
		return fmt.Errorf("upsert domain: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// EnsureExists inserts the entry only if the domain is not present at all.
// Used for bootstrap seeding; an existing row (active or retired) wins.
func (s *DomainStore) EnsureExists(d model.AllowedDomain) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO allowed_domains (domain, status, is_primary) VALUES (?, ?, ?)`,
		d.Domain, d.Status, d.IsPrimary,
	)
	if err != nil {
		return fmt.Errorf("ensure domain: %w", err)
	}
	return nil
}

// Retire soft-deletes the entry; the row stays in the table.
func (s *DomainStore) Retire(domain string) error {
	_, err := s.db.Exec(
		`UPDATE allowed_domains SET status = ? WHERE domain = ?`,
		model.DomainRetired, domain,
	)
	if err != nil {
		return fmt.Errorf("retire domain: %w", err)
	}
	return nil
}
