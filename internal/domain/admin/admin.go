// Package admin defines the per-tenant admin document and auth types.
package admin

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Document is the authoritative admin record stored inside a tenant
// partition. Attributes is an open bag for tenant-specific fields.
type Document struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	Organization string         `json:"organization_name"`
	IsActive     bool           `json:"is_active"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// LoginRequest is the payload for POST /admin/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token and its metadata.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	AdminEmail   string `json:"admin_email"`
	Organization string `json:"organization_name"`
}

// Claims is the JWT payload for admin access tokens.
type Claims struct {
	AdminID      string `json:"admin_id"`
	Email        string `json:"email"`
	Organization string `json:"organization_name"`
	jwt.RegisteredClaims
}
