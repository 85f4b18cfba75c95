package mailer

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/limsathya/workspace/internal/model"
)

func testConfig(host string) model.SMTPConfig {
	return model.SMTPConfig{Host: host, Port: 587, From: "noreply@example.com"}
}

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBuildMessageFillsFrom(t *testing.T) {
	cfg := testConfig("smtp.example.com")

	m, err := buildMessage(cfg, Message{
		To:      []string{"u@example.com"},
		Subject: "hello",
		Text:    "body",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	from := m.GetFrom()
	if len(from) != 1 {
		t.Fatalf("senders: %v", from)
	}
	if from[0].Address != "noreply@example.com" {
		t.Errorf("from = %q, want configured sender", from[0].Address)
	}
}

func TestBuildMessageKeepsExplicitFrom(t *testing.T) {
	cfg := testConfig("smtp.example.com")

	m, err := buildMessage(cfg, Message{
		To:      []string{"u@example.com"},
		Subject: "hello",
		Text:    "body",
		From:    "alerts@example.com",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	from := m.GetFrom()
	if len(from) != 1 {
		t.Fatalf("senders: %v", from)
	}
	if from[0].Address != "alerts@example.com" {
		t.Errorf("from = %q, want explicit sender", from[0].Address)
	}
}

func TestBuildMessageInvalidRecipient(t *testing.T) {
	cfg := testConfig("smtp.example.com")

	_, err := buildMessage(cfg, Message{To: []string{"not-an-address"}, Subject: "x", Text: "y"})
	if err == nil {
		t.Fatal("expected error for malformed recipient")
	}
	if !strings.Contains(err.Error(), "invalid recipient") {
		t.Errorf("err = %v", err)
	}
}

func TestClientReusedWithinTTL(t *testing.T) {
	d := newTestDispatcher()
	base := time.Now()
	d.now = func() time.Time { return base }

	cfg := testConfig("smtp.example.com")
	first, err := d.clientFor(cfg)
	if err != nil {
		t.Fatalf("first client: %v", err)
	}

	d.now = func() time.Time { return base.Add(clientTTL - time.Second) }
	second, err := d.clientFor(cfg)
	if err != nil {
		t.Fatalf("second client: %v", err)
	}
	if first != second {
		t.Error("unchanged config inside the TTL must reuse the client")
	}
}

func TestClientRebuiltOnConfigChange(t *testing.T) {
	d := newTestDispatcher()
	base := time.Now()
	d.now = func() time.Time { return base }

	first, err := d.clientFor(testConfig("smtp.old.com"))
	if err != nil {
		t.Fatalf("first client: %v", err)
	}

	// No TTL wait: a different config rebuilds immediately.
	second, err := d.clientFor(testConfig("smtp.new.com"))
	if err != nil {
		t.Fatalf("second client: %v", err)
	}
	if first == second {
		t.Error("config change must rebuild the client")
	}
}

func TestClientRebuiltAfterTTL(t *testing.T) {
	d := newTestDispatcher()
	base := time.Now()
	d.now = func() time.Time { return base }

	cfg := testConfig("smtp.example.com")
	first, err := d.clientFor(cfg)
	if err != nil {
		t.Fatalf("first client: %v", err)
	}

	d.now = func() time.Time { return base.Add(clientTTL + time.Second) }
	second, err := d.clientFor(cfg)
	if err != nil {
		t.Fatalf("second client: %v", err)
	}
	if first == second {
		t.Error("client older than the TTL must be rebuilt")
	}
}
