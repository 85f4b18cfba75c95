package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/limsathya/workspace/internal/auth"
	"github.com/limsathya/workspace/internal/sysconfig"
)

type AuthHandler struct {
	authSvc *auth.Service
	cfgSvc  *sysconfig.Service
	logger  *slog.Logger
}

func NewAuthHandler(authSvc *auth.Service, cfgSvc *sysconfig.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authSvc: authSvc,
		cfgSvc:  cfgSvc,
		logger:  logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates credentials and issues the session cookie. The domain
// rejection message names the allowed domains; every credential failure is
// the same "Invalid credentials".
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "message": "Invalid request body",
		})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "message": "Email and password are required",
		})
		return
	}

	user, sess, err := h.authSvc.Login(req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrDomainNotAllowed):
		names := make([]string, 0)
		for _, d := range h.cfgSvc.AllowedDomains() {
			names = append(names, d.Domain)
		}
		respondJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"message": fmt.Sprintf("Only %s email addresses are allowed", strings.Join(names, ", ")),
		})
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false, "message": "Invalid credentials",
		})
		return
	case err != nil:
		h.logger.Error("login", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false, "message": "Server error",
		})
		return
	}

	http.SetCookie(w, h.authSvc.SessionCookie(sess))
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    map[string]any{"id": user.ID, "email": user.Email},
	})
}

// Me reports the current session's user, if any. Anonymous is not an error.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authSvc.CurrentUser(r)
	if err != nil {
		h.logger.Error("current user", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"authenticated": false, "error": "Server error",
		})
		return
	}

	if user == nil {
		respondJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":       user.ID,
			"email":    user.Email,
			"fullName": user.FullName,
		},
	})
}

// Logout destroys the session and clears the cookie. The clearing cookie is
// sent even when no session token was present.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authSvc.Logout(r); err != nil {
		h.logger.Error("logout", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false, "message": "Failed to logout",
		})
		return
	}

	http.SetCookie(w, h.authSvc.ClearedSessionCookie())
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
