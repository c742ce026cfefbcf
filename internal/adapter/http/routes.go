package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/orgvault/orgvault/internal/middleware"
	"github.com/orgvault/orgvault/internal/service"
)

// MountRoutes registers all API routes on the given chi router. The
// lifecycle surface mounts at the root; update and delete require a
// bearer token for the target organization.
func MountRoutes(r chi.Router, h *Handlers, authSvc *service.AuthService) {
	auth := middleware.Auth(authSvc)

	r.Route("/org", func(r chi.Router) {
		r.Post("/create", h.CreateOrganization)
		r.Get("/get", h.GetOrganization)
		r.Get("/list", h.ListOrganizations)
		r.With(auth).Put("/update", h.UpdateOrganization)
		r.With(auth).Delete("/delete", h.DeleteOrganization)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.With(auth).Get("/me", h.Me)
	})
}
