// Package http provides the HTTP handler and middleware adapters.
package http

import (
	"github.com/orgvault/orgvault/internal/service"
)

// Handlers bundles the services the HTTP layer exposes.
type Handlers struct {
	Lifecycle *service.LifecycleService
	Auth      *service.AuthService

	// BodyLimit is the maximum accepted request body size in bytes.
	BodyLimit int64
}
