package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/limsathya/workspace/internal/metrics"
	"github.com/limsathya/workspace/internal/model"
	"github.com/limsathya/workspace/internal/store"
	"github.com/limsathya/workspace/internal/sysconfig"
)

// SessionCookieName is the cookie correlating a browser with its server-side
// session record.
const SessionCookieName = "session_token"

var (
	// ErrInvalidCredentials covers unknown users and wrong passwords alike;
	// callers must not be able to tell which one happened.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDomainNotAllowed rejects logins before any credential lookup.
	ErrDomainNotAllowed = errors.New("email domain not allowed")
)

type Service struct {
	users      *store.UserStore
	sessions   *store.SessionStore
	sysconfig  *sysconfig.Service
	production bool
	logger     *slog.Logger
}

func NewService(us *store.UserStore, ss *store.SessionStore, sc *sysconfig.Service, production bool, logger *slog.Logger) *Service {
	return &Service{
		users:      us,
		sessions:   ss,
		sysconfig:  sc,
		production: production,
		logger:     logger,
	}
}

// Login checks the domain allowlist first (no credential lookup for
// disallowed domains), then the stored bcrypt hash, and mints a session on
// success. Every credential failure is ErrInvalidCredentials.
func (s *Service) Login(email, password string) (*model.User, *model.Session, error) {
	if !s.sysconfig.IsAllowedEmail(email) {
		metrics.LoginsTotal.WithLabelValues("domain_rejected").Inc()
		return nil, nil, ErrDomainNotAllowed
	}

	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return user, sess, nil
}

// CurrentUser resolves the session cookie to its owning user. Missing
// cookies and missing or expired sessions all resolve to nil; expired
// sessions are destroyed as a side effect of the lookup.
func (s *Service) CurrentUser(r *http.Request) (*model.User, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	return s.sessions.Resolve(cookie.Value)
}

// Logout destroys the session named by the request cookie, if any. It is
// idempotent: a missing or unknown token is not an error.
func (s *Service) Logout(r *http.Request) error {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return s.sessions.Delete(cookie.Value)
}

// SessionCookie builds the cookie-setting instruction for a freshly minted
// session. Secure is only set in production so local HTTP logins work.
func (s *Service) SessionCookie(sess *model.Session) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.production,
	}
}

// ClearedSessionCookie builds the cookie-clearing instruction emitted on
// logout regardless of whether a session existed.
func (s *Service) ClearedSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.production,
	}
}

// HashPassword hashes a plaintext password for provisioning.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
