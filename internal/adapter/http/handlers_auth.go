package http

import (
	"net/http"

	"github.com/orgvault/orgvault/internal/domain/admin"
	"github.com/orgvault/orgvault/internal/middleware"
)

// Login handles POST /admin/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[admin.LoginRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}

	resp, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "admin not found")
		return
	}

	writeSuccess(w, http.StatusOK, "login successful", resp)
}

// Me handles GET /admin/me, returning the admin summary from the verified
// token claims.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	writeSuccess(w, http.StatusOK, "authenticated", map[string]any{
		"admin_id":          claims.AdminID,
		"email":             claims.Email,
		"organization_name": claims.Organization,
	})
}
