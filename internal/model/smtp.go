package model

import "time"

// SMTPConfig rows are append-only: every update inserts a new row and the
// most recent updated_at wins. Logically a singleton.
type SMTPConfig struct {
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Username  string    `json:"user"`
	Password  string    `json:"password"`
	From      string    `json:"from"`
	Secure    bool      `json:"secure"`
	Provider  string    `json:"provider"`
	UpdatedAt time.Time `json:"-"`
}
