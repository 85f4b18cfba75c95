package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/limsathya/workspace/internal/auth"
	"github.com/limsathya/workspace/internal/database"
	"github.com/limsathya/workspace/internal/model"
	"github.com/limsathya/workspace/internal/store"
	"github.com/limsathya/workspace/internal/sysconfig"
)

// stubTester stands in for the mail dispatcher so handler tests never dial a
// real SMTP server.
type stubTester struct {
	lastCfg   model.SMTPConfig
	lastEmail string
	messageID string
	err       error
}

func (s *stubTester) TestConfig(_ context.Context, cfg model.SMTPConfig, testEmail string) (string, error) {
	s.lastCfg = cfg
	s.lastEmail = testEmail
	if s.err != nil {
		return "", s.err
	}
	return s.messageID, nil
}

type testEnv struct {
	db        *sql.DB
	cfgSvc    *sysconfig.Service
	authSvc   *auth.Service
	smtpStore *store.SMTPStore
	tester    *stubTester
	authH     *AuthHandler
	domainH   *DomainHandler
	smtpH     *SMTPHandler
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	defaults := sysconfig.Defaults{
		SMTP: model.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"},
		Domains: []model.AllowedDomain{
			{Domain: "example.com", Status: model.DomainActive, IsPrimary: true},
		},
	}
	smtpStore := store.NewSMTPStore(db)
	cfgSvc := sysconfig.New(store.NewDomainStore(db), smtpStore, defaults, logger)

	users := store.NewUserStore(db)
	sessions := store.NewSessionStore(db)
	authSvc := auth.NewService(users, sessions, cfgSvc, false, logger)

	hash, err := auth.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if _, err := users.Create("alice@example.com", hash, "Alice"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	tester := &stubTester{messageID: "<test-id@example.com>"}
	return &testEnv{
		db:        db,
		cfgSvc:    cfgSvc,
		authSvc:   authSvc,
		smtpStore: smtpStore,
		tester:    tester,
		authH:     NewAuthHandler(authSvc, cfgSvc, logger),
		domainH:   NewDomainHandler(cfgSvc, logger),
		smtpH:     NewSMTPHandler(cfgSvc, smtpStore, tester, logger),
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}
