// Package mailer dispatches outbound email using the SMTP settings served by
// sysconfig. The dispatch path reuses a cached client; TestConfig builds a
// one-off client from caller-supplied settings and bypasses every cache.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/limsathya/workspace/internal/metrics"
	"github.com/limsathya/workspace/internal/model"
	"github.com/limsathya/workspace/internal/sysconfig"
)

// clientTTL bounds how long a cached client may outlive the configuration it
// was built from before the next send rebuilds it.
const clientTTL = 5 * time.Minute

type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
	From    string
}

type Dispatcher struct {
	sysconfig *sysconfig.Service
	logger    *slog.Logger

	mu        sync.Mutex
	client    *mail.Client
	clientCfg model.SMTPConfig
	builtAt   time.Time
	now       func() time.Time
}

func NewDispatcher(sc *sysconfig.Service, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sysconfig: sc,
		logger:    logger,
		now:       time.Now,
	}
}

// Send resolves the current SMTP configuration and dispatches the message,
// filling an unset From with the configured sender. Transport failures are
// logged and returned as a single opaque error; the caller cannot tell a
// connection failure from a recipient rejection.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	cfg := d.sysconfig.SMTPConfig()

	client, err := d.clientFor(cfg)
	if err != nil {
		metrics.MailSendsTotal.WithLabelValues("failure").Inc()
		d.logger.Error("build smtp client", "host", cfg.Host, "error", err)
		return fmt.Errorf("build smtp client: %w", err)
	}

	m, err := buildMessage(cfg, msg)
	if err != nil {
		metrics.MailSendsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("build message: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		metrics.MailSendsTotal.WithLabelValues("failure").Inc()
		d.logger.Error("send mail", "host", cfg.Host, "to", msg.To, "error", err)
		return fmt.Errorf("send mail: %w", err)
	}

	metrics.MailSendsTotal.WithLabelValues("success").Inc()
	return nil
}

// clientFor returns the cached client while the configuration is unchanged
// and the client younger than clientTTL. A configuration change rebuilds the
// client immediately, so a fresh config is never served through a stale
// client beyond the config cache's own window.
func (d *Dispatcher) clientFor(cfg model.SMTPConfig) (*mail.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.client != nil && d.clientCfg == cfg && now.Sub(d.builtAt) < clientTTL {
		return d.client, nil
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	d.client = client
	d.clientCfg = cfg
	d.builtAt = now
	return client, nil
}

// TestConfig verifies caller-supplied settings without persisting them:
// it dials and authenticates explicitly, then sends a fixed test message to
// testEmail. On success it returns the generated message id.
func (d *Dispatcher) TestConfig(ctx context.Context, cfg model.SMTPConfig, testEmail string) (string, error) {
	client, err := newClient(cfg)
	if err != nil {
		return "", fmt.Errorf("build smtp client: %w", err)
	}

	if err := client.DialWithContext(ctx); err != nil {
		return "", fmt.Errorf("connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	defer client.Close()

	m := mail.NewMsg()
	if err := m.From(cfg.From); err != nil {
		return "", fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(testEmail); err != nil {
		return "", fmt.Errorf("invalid test address: %w", err)
	}
	m.SetMessageID()
	m.Subject("SMTP Configuration Test")
	m.SetBodyString(mail.TypeTextPlain, "This is a test email to verify your SMTP configuration.")
	m.AddAlternativeString(mail.TypeTextHTML, "<p>This is a test email to verify your SMTP configuration.</p>")

	if err := client.Send(m); err != nil {
		return "", fmt.Errorf("send test email: %w", err)
	}

	return m.GetMessageID(), nil
}

func newClient(cfg model.SMTPConfig) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return mail.NewClient(cfg.Host, opts...)
}

func buildMessage(cfg model.SMTPConfig, msg Message) (*mail.Msg, error) {
	from := msg.From
	if from == "" {
		from = cfg.From
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	if msg.Text != "" {
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}
	if msg.HTML != "" {
		if msg.Text == "" {
			m.SetBodyString(mail.TypeTextHTML, msg.HTML)
		} else {
			m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
		}
	}
	return m, nil
}
