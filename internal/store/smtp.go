package store

import (
	"database/sql"
	"fmt"

	"github.com/limsathya/workspace/internal/model"
)

type SMTPStore struct {
	db *sql.DB
}

func NewSMTPStore(db *sql.DB) *SMTPStore {
	return &SMTPStore{db: db}
}

// Latest returns the most recently written configuration, or nil when the
// table is empty. Rows are append-only; the newest updated_at wins.
func (s *SMTPStore) Latest() (*model.SMTPConfig, error) {
	var c model.SMTPConfig
	err := s.db.QueryRow(
		`SELECT host, port, username, password, from_address, secure, provider, updated_at
		 FROM smtp_config ORDER BY updated_at DESC, id DESC LIMIT 1`,
	).Scan(&c.Host, &c.Port, &c.Username, &c.Password, &c.From, &c.Secure, &c.Provider, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get smtp config: %w", err)
	}
	return &c, nil
}

// Insert appends a new configuration row; earlier rows are kept as history.
func (s *SMTPStore) Insert(c model.SMTPConfig) error {
	_, err := s.db.Exec(
		`INSERT INTO smtp_config (host, port, username, password, from_address, secure, provider)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Host, c.Port, c.Username, c.Password, c.From, c.Secure, c.Provider,
	)
	if err != nil {
		return fmt.Errorf("insert smtp config: %w", err)
	}
	return nil
}
