package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/limsathya/workspace/config"
	"github.com/limsathya/workspace/internal/auth"
	"github.com/limsathya/workspace/internal/handler"
	"github.com/limsathya/workspace/internal/mailer"
	"github.com/limsathya/workspace/internal/metrics"
	"github.com/limsathya/workspace/internal/middleware"
	"github.com/limsathya/workspace/internal/store"
	"github.com/limsathya/workspace/internal/sysconfig"
)

type Server struct {
	db           *sql.DB
	cfg          *config.Config
	cfgSvc       *sysconfig.Service
	authSvc      *auth.Service
	dispatcher   *mailer.Dispatcher
	sessionStore *store.SessionStore
	authH        *handler.AuthHandler
	domainH      *handler.DomainHandler
	smtpH        *handler.SMTPHandler
	logger       *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	domainStore := store.NewDomainStore(db)
	smtpStore := store.NewSMTPStore(db)

	cfgSvc := sysconfig.New(domainStore, smtpStore, sysconfig.Defaults{
		SMTP:    cfg.DefaultSMTP(),
		Domains: cfg.DefaultDomains(),
	}, logger.With("component", "sysconfig"))

	authSvc := auth.NewService(userStore, sessionStore, cfgSvc, cfg.Production(), logger.With("component", "auth"))
	dispatcher := mailer.NewDispatcher(cfgSvc, logger.With("component", "mailer"))

	return &Server{
		db:           db,
		cfg:          cfg,
		cfgSvc:       cfgSvc,
		authSvc:      authSvc,
		dispatcher:   dispatcher,
		sessionStore: sessionStore,
		authH:        handler.NewAuthHandler(authSvc, cfgSvc, logger.With("component", "auth_handler")),
		domainH:      handler.NewDomainHandler(cfgSvc, logger.With("component", "domain_handler")),
		smtpH:        handler.NewSMTPHandler(cfgSvc, smtpStore, dispatcher, logger.With("component", "smtp_handler")),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/auth/login", s.authH.Login)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/config/domains", s.domainH.PublicList)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", metrics.Handler())

	// Privileged routes — active session whose email matches the
	// designated administrator address.
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET /api/admin/smtp", s.smtpH.Get)
	adminMux.HandleFunc("PUT /api/admin/smtp", s.smtpH.Update)
	adminMux.HandleFunc("POST /api/admin/smtp/test", s.smtpH.Test)
	adminMux.HandleFunc("GET /api/admin/domains", s.domainH.List)
	adminMux.HandleFunc("POST /api/admin/domains", s.domainH.Add)
	adminMux.HandleFunc("DELETE /api/admin/domains", s.domainH.Remove)

	requireAuth := middleware.RequireAuth(s.authSvc)
	requireAdmin := middleware.RequireAdmin(s.cfg.AdminEmail)
	mux.Handle("/api/admin/", requireAuth(requireAdmin(adminMux)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(middleware.Metrics(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
