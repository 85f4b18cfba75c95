package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/limsathya/workspace/internal/sysconfig"
)

type DomainHandler struct {
	cfgSvc *sysconfig.Service
	logger *slog.Logger
}

func NewDomainHandler(cfgSvc *sysconfig.Service, logger *slog.Logger) *DomainHandler {
	return &DomainHandler{cfgSvc: cfgSvc, logger: logger}
}

// PublicList serves the login page's domain hint: names only, no flags.
func (h *DomainHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	domains := h.cfgSvc.AllowedDomains()
	names := make([]string, 0, len(domains))
	for _, d := range domains {
		names = append(names, d.Domain)
	}
	respondJSON(w, http.StatusOK, map[string]any{"domains": names})
}

// List returns the full active allowlist for the admin settings screen.
func (h *DomainHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"domains": h.cfgSvc.AllowedDomains()})
}

type addDomainRequest struct {
	Domain    string `json:"domain"`
	IsPrimary bool   `json:"isPrimary"`
}

func (h *DomainHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addDomainRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request body"})
		return
	}

	req.Domain = strings.TrimSpace(req.Domain)
	if req.Domain == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "Domain is required"})
		return
	}

	if err := h.cfgSvc.AddDomain(req.Domain, req.IsPrimary); err != nil {
		if errors.Is(err, sysconfig.ErrInvalidDomain) {
			respondJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid domain format"})
			return
		}
		h.logger.Error("add domain", "domain", req.Domain, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to add domain"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Domain added successfully"})
}

// Remove retires the domain named by the query parameter. The entry stays in
// the store with retired status.
func (h *DomainHandler) Remove(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "Domain is required"})
		return
	}

	if err := h.cfgSvc.RemoveDomain(domain); err != nil {
		h.logger.Error("remove domain", "domain", domain, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to remove domain"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Domain removed successfully"})
}
