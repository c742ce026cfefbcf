package database

import (
	"context"

	"github.com/orgvault/orgvault/internal/domain/admin"
)

// Partitions is the port for per-tenant partition storage. A partition is
// an isolated document container identified by its derived partition name
// (org.PartitionFor). Implementations create and drop partitions
// dynamically during the tenant lifecycle.
type Partitions interface {
	// CreateWithSeed creates a new empty partition and, when seed is
	// non-nil, inserts it as the initial admin document in the same
	// transaction. Returns domain.ErrConflict when the partition already
	// exists.
	CreateWithSeed(ctx context.Context, partition string, seed *admin.Document) error

	// CopyAll copies every document from src to dst, applying transform
	// to each before writing. Returns the number of documents copied.
	CopyAll(ctx context.Context, src, dst string, transform func(*admin.Document)) (int, error)

	// UpsertAdmin inserts or replaces the admin document keyed by its ID,
	// allowing email rotation in place.
	UpsertAdmin(ctx context.Context, partition string, doc *admin.Document) error

	// GetAdminByEmail returns the admin document with the given email,
	// or domain.ErrNotFound.
	GetAdminByEmail(ctx context.Context, partition, email string) (*admin.Document, error)

	// ListDocuments returns all documents in the partition.
	ListDocuments(ctx context.Context, partition string) ([]admin.Document, error)

	// Exists reports whether the partition is present.
	Exists(ctx context.Context, partition string) (bool, error)

	// Drop removes the partition and all its documents. Dropping a
	// partition that does not exist is not an error.
	Drop(ctx context.Context, partition string) error
}
