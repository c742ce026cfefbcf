// Package database defines the store ports for the organization registry
// and the per-tenant partitions.
package database

import (
	"context"

	"github.com/orgvault/orgvault/internal/domain/org"
)

// Registry is the port for the central organization registry.
// Name lookups are case-sensitive byte comparisons.
type Registry interface {
	// Insert adds a new record. Returns domain.ErrConflict when a record
	// with the same organization name already exists; the store's unique
	// constraint is the serialization point for concurrent creates.
	Insert(ctx context.Context, rec *org.Organization) error

	// GetByName returns the record for an organization name, or
	// domain.ErrNotFound.
	GetByName(ctx context.Context, name string) (*org.Organization, error)

	// GetByAdminEmail returns the record whose denormalized admin email
	// matches, or domain.ErrNotFound.
	GetByAdminEmail(ctx context.Context, email string) (*org.Organization, error)

	// Replace overwrites the record currently stored under oldName with
	// rec (which may carry a different name). Returns domain.ErrNotFound
	// when oldName has no record.
	Replace(ctx context.Context, oldName string, rec *org.Organization) error

	// DeleteByName removes the record. Returns domain.ErrNotFound when
	// no record exists.
	DeleteByName(ctx context.Context, name string) error

	// ListAll returns every record, active and inactive, ordered by
	// creation time.
	ListAll(ctx context.Context) ([]org.Organization, error)
}
