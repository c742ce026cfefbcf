package http

import (
	"net/http"

	"github.com/orgvault/orgvault/internal/domain/org"
	"github.com/orgvault/orgvault/internal/middleware"
)

// CreateOrganization handles POST /org/create.
func (h *Handlers) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[org.CreateRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}

	rec, err := h.Lifecycle.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}

	writeSuccess(w, http.StatusCreated, "organization created successfully", rec)
}

// GetOrganization handles GET /org/get?organization_name=<name>.
func (h *Handlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("organization_name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "organization_name is required")
		return
	}

	rec, err := h.Lifecycle.Get(r.Context(), name)
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}

	writeSuccess(w, http.StatusOK, "organization retrieved", rec)
}

// ListOrganizations handles GET /org/list.
func (h *Handlers) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.Lifecycle.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "organizations not found")
		return
	}

	writeSuccess(w, http.StatusOK, "organizations retrieved", map[string]any{
		"organizations": orgs,
		"count":         len(orgs),
	})
}

// UpdateOrganization handles PUT /org/update. Requires a bearer token for
// the organization being updated.
func (h *Handlers) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	req, ok := readJSON[org.UpdateRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}

	rec, err := h.Lifecycle.Update(r.Context(), req, claims.Organization)
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}

	writeSuccess(w, http.StatusOK, "organization updated successfully", rec)
}

// DeleteOrganization handles DELETE /org/delete. Requires a bearer token
// for the organization being deleted.
func (h *Handlers) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	req, ok := readJSON[org.DeleteRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "organization_name is required")
		return
	}

	rec, err := h.Lifecycle.Delete(r.Context(), req.Name, claims.Organization)
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}

	writeSuccess(w, http.StatusOK, "organization deleted successfully", map[string]any{
		"organization_name": rec.Name,
		"deleted_partition": rec.PartitionName,
	})
}
