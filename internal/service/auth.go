package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/orgvault/orgvault/internal/config"
	"github.com/orgvault/orgvault/internal/domain"
	"github.com/orgvault/orgvault/internal/domain/admin"
	"github.com/orgvault/orgvault/internal/domain/org"
	"github.com/orgvault/orgvault/internal/port/cache"
	"github.com/orgvault/orgvault/internal/port/database"
)

// AuthService authenticates organization admins and issues HS256 access
// tokens. Login resolves the owning organization through the registry's
// denormalized admin email, then verifies against the authoritative admin
// document inside the tenant partition.
type AuthService struct {
	registry   database.Registry
	partitions database.Partitions
	cache      cache.Cache
	cfg        *config.Auth
	secret     []byte
	cacheTTL   time.Duration
}

// NewAuthService creates the auth service.
func NewAuthService(
	registry database.Registry,
	partitions database.Partitions,
	c cache.Cache,
	cfg *config.Auth,
	cacheTTL time.Duration,
) *AuthService {
	return &AuthService{
		registry:   registry,
		partitions: partitions,
		cache:      c,
		cfg:        cfg,
		secret:     []byte(cfg.JWTSecret),
		cacheTTL:   cacheTTL,
	}
}

// Login verifies admin credentials and returns a bearer token response.
// Unknown emails and wrong passwords both map to domain.ErrUnauthorized;
// a disabled admin or organization maps to domain.ErrForbidden.
func (s *AuthService) Login(ctx context.Context, req admin.LoginRequest) (*admin.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	rec, err := s.lookupOrg(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown admin: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}

	doc, err := s.partitions.GetAdminByEmail(ctx, rec.PartitionName, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown admin: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(doc.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	if !doc.IsActive || !rec.IsActive {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}

	token, err := s.signToken(doc)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &admin.LoginResponse{
		AccessToken:  token,
		TokenType:    "bearer",
		ExpiresIn:    int(s.cfg.TokenExpiry.Seconds()),
		AdminEmail:   doc.Email,
		Organization: doc.Organization,
	}, nil
}

// lookupOrg fetches the registry record for an admin email, consulting the
// L1 cache first. Cache failures fall through to the registry.
func (s *AuthService) lookupOrg(ctx context.Context, email string) (*org.Organization, error) {
	key := adminCacheKey(email)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var rec org.Organization
			if err := json.Unmarshal(data, &rec); err == nil {
				return &rec, nil
			}
		}
	}

	rec, err := s.registry.GetByAdminEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(rec); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				slog.Debug("cache set failed", "key", key, "error", err)
			}
		}
	}
	return rec, nil
}

// ValidateAccessToken parses and verifies a bearer token, returning its
// claims. Expired tokens map to domain.ErrTokenExpired, everything else
// invalid to domain.ErrUnauthorized.
func (s *AuthService) ValidateAccessToken(token string) (*admin.Claims, error) {
	claims := &admin.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("access token: %w", domain.ErrTokenExpired)
		}
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	if !parsed.Valid || claims.AdminID == "" || claims.Email == "" || claims.Organization == "" {
		return nil, fmt.Errorf("invalid token payload: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}

// ResetAdminPassword sets a new admin password for an organization,
// updating the partition document and the registry snapshot. Used by the
// admin CLI.
func (s *AuthService) ResetAdminPassword(ctx context.Context, orgName, newPassword string) error {
	if err := org.ValidatePassword(newPassword); err != nil {
		return err
	}

	rec, err := s.registry.GetByName(ctx, orgName)
	if err != nil {
		return err
	}

	doc, err := s.partitions.GetAdminByEmail(ctx, rec.PartitionName, rec.AdminEmail)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	doc.PasswordHash = string(hash)

	if err := s.partitions.UpsertAdmin(ctx, rec.PartitionName, doc); err != nil {
		return err
	}

	updated := *rec
	updated.AdminPasswordHash = doc.PasswordHash
	if err := s.registry.Replace(ctx, rec.Name, &updated); err != nil {
		return fmt.Errorf("registry snapshot after password reset: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, adminCacheKey(rec.AdminEmail))
	}
	return nil
}

// signToken issues an HS256 access token for the admin document.
func (s *AuthService) signToken(doc *admin.Document) (string, error) {
	now := time.Now()
	claims := &admin.Claims{
		AdminID:      doc.ID,
		Email:        doc.Email,
		Organization: doc.Organization,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenExpiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
