package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/limsathya/workspace/internal/model"
	"github.com/limsathya/workspace/internal/store"
	"github.com/limsathya/workspace/internal/sysconfig"
)

// maskedPassword is the sentinel returned instead of the stored password.
// When an update round-trips it unchanged, the stored password is preserved.
const maskedPassword = "********"

// ConfigTester is the cache-bypassing verification path of the mail
// dispatcher.
type ConfigTester interface {
	TestConfig(ctx context.Context, cfg model.SMTPConfig, testEmail string) (string, error)
}

type SMTPHandler struct {
	cfgSvc   *sysconfig.Service
	smtp     *store.SMTPStore
	tester   ConfigTester
	validate *validator.Validate
	logger   *slog.Logger
}

func NewSMTPHandler(cfgSvc *sysconfig.Service, smtp *store.SMTPStore, tester ConfigTester, logger *slog.Logger) *SMTPHandler {
	return &SMTPHandler{
		cfgSvc:   cfgSvc,
		smtp:     smtp,
		tester:   tester,
		validate: validator.New(),
		logger:   logger,
	}
}

// smtpConfigPayload models the wire form of the configuration. Password is a
// pointer: absent and sentinel both mean "keep the stored password", so an
// administrator who leaves the field untouched never erases it.
type smtpConfigPayload struct {
	Host     string  `json:"host"`
	Port     int     `json:"port"`
	Username string  `json:"user"`
	Password *string `json:"password"`
	From     string  `json:"from"`
	Secure   bool    `json:"secure"`
	Provider string  `json:"provider"`
}

// keepsStoredPassword reports whether the payload asks for the stored
// password: the field was absent or round-tripped the mask.
func (p *smtpConfigPayload) keepsStoredPassword() bool {
	return p.Password == nil || *p.Password == maskedPassword
}

func (p *smtpConfigPayload) toModel(storedPassword string) model.SMTPConfig {
	password := storedPassword
	if !p.keepsStoredPassword() {
		password = *p.Password
	}
	return model.SMTPConfig{
		Host:     p.Host,
		Port:     p.Port,
		Username: p.Username,
		Password: password,
		From:     p.From,
		Secure:   p.Secure,
		Provider: p.Provider,
	}
}

// storedPassword resolves the persisted password for payloads that keep it.
// It reads the store directly: the test path must not bootstrap a config row
// or refresh the cache as a side effect of a lookup. An empty or unreadable
// store yields an empty password.
func (h *SMTPHandler) storedPassword(p *smtpConfigPayload) string {
	if !p.keepsStoredPassword() {
		return ""
	}
	cfg, err := h.smtp.Latest()
	if err != nil {
		h.logger.Error("lookup stored smtp password", "error", err)
		return ""
	}
	if cfg == nil {
		return ""
	}
	return cfg.Password
}

// Get returns the current configuration with the password masked when set.
func (h *SMTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfgSvc.SMTPConfig()
	if cfg.Password != "" {
		cfg.Password = maskedPassword
	}
	respondJSON(w, http.StatusOK, map[string]any{"config": cfg})
}

type updateSMTPRequest struct {
	Config *smtpConfigPayload `json:"config"`
}

func (h *SMTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSMTPRequest
	if err := decodeJSON(r, &req); err != nil || req.Config == nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "Configuration is required"})
		return
	}

	if req.Config.Host == "" || req.Config.Port == 0 || req.Config.From == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "Host, port, and from email are required"})
		return
	}

	cfg := req.Config.toModel(h.storedPassword(req.Config))
	if err := h.cfgSvc.UpdateSMTPConfig(cfg); err != nil {
		h.logger.Error("update smtp config", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to update SMTP configuration"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "SMTP configuration updated successfully"})
}

type testSMTPRequest struct {
	Config    *smtpConfigPayload `json:"config"`
	TestEmail string             `json:"testEmail"`
}

// Test verifies the supplied, unsaved configuration by dialing the server
// and sending a fixed message. Nothing is persisted and no cache is touched.
func (h *SMTPHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req testSMTPRequest
	if err := decodeJSON(r, &req); err != nil || req.Config == nil || req.TestEmail == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "Configuration and test email are required"})
		return
	}

	if err := h.validate.Var(req.TestEmail, "required,email"); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid test email format"})
		return
	}

	cfg := req.Config.toModel(h.storedPassword(req.Config))
	messageID, err := h.tester.TestConfig(r.Context(), cfg, req.TestEmail)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": fmt.Sprintf("SMTP test failed: %v", err),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Test email sent successfully. Message ID: %s", messageID),
	})
}
