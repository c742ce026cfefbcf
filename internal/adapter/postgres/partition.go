package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgvault/orgvault/internal/domain"
	"github.com/orgvault/orgvault/internal/domain/admin"
	"github.com/orgvault/orgvault/internal/domain/org"
	"github.com/orgvault/orgvault/internal/port/database"
)

// PartitionStore implements database.Partitions as one table per tenant.
// Table names cannot be bound as query parameters, so every identifier is
// checked against the name grammar and quoted with pgx.Identifier before
// interpolation into DDL or DML.
type PartitionStore struct {
	pool *pgxpool.Pool
}

var _ database.Partitions = (*PartitionStore)(nil)

// NewPartitionStore creates a partition store backed by the given pool.
func NewPartitionStore(pool *pgxpool.Pool) *PartitionStore {
	return &PartitionStore{pool: pool}
}

const docColumns = `id, email, password_hash, organization_name, is_active, attributes, created_at`

// quoteIdent validates a partition identifier and returns it quoted for
// safe interpolation.
func quoteIdent(partition string) (string, error) {
	suffix, ok := strings.CutPrefix(partition, org.PartitionPrefix)
	if !ok {
		return "", fmt.Errorf("%w: partition %q lacks the %q prefix", domain.ErrValidation, partition, org.PartitionPrefix)
	}
	if err := org.ValidateName(suffix); err != nil {
		return "", fmt.Errorf("partition %q: %w", partition, err)
	}
	return pgx.Identifier{partition}.Sanitize(), nil
}

func (s *PartitionStore) CreateWithSeed(ctx context.Context, partition string, seed *admin.Document) error {
	ident, err := quoteIdent(partition)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", mapError(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE %s (
			id                uuid PRIMARY KEY,
			email             text        NOT NULL UNIQUE,
			password_hash     text        NOT NULL,
			organization_name text        NOT NULL,
			is_active         boolean     NOT NULL DEFAULT true,
			attributes        jsonb       NOT NULL DEFAULT '{}'::jsonb,
			created_at        timestamptz NOT NULL DEFAULT now()
		)`, ident))
	if err != nil {
		return fmt.Errorf("create partition %s: %w", partition, mapError(err))
	}

	if seed != nil {
		if err := insertDoc(ctx, tx, ident, seed); err != nil {
			return fmt.Errorf("seed partition %s: %w", partition, mapError(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit partition %s: %w", partition, mapError(err))
	}
	return nil
}

func (s *PartitionStore) CopyAll(ctx context.Context, src, dst string, transform func(*admin.Document)) (int, error) {
	srcIdent, err := quoteIdent(src)
	if err != nil {
		return 0, err
	}
	dstIdent, err := quoteIdent(dst)
	if err != nil {
		return 0, err
	}

	docs, err := s.listDocs(ctx, srcIdent, src)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", mapError(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range docs {
		if transform != nil {
			transform(&docs[i])
		}
		if err := insertDoc(ctx, tx, dstIdent, &docs[i]); err != nil {
			return 0, fmt.Errorf("copy into %s: %w", dst, mapError(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit copy %s -> %s: %w", src, dst, mapError(err))
	}
	return len(docs), nil
}

func (s *PartitionStore) UpsertAdmin(ctx context.Context, partition string, doc *admin.Document) error {
	ident, err := quoteIdent(partition)
	if err != nil {
		return err
	}

	attrs, err := marshalAttrs(doc.Attributes)
	if err != nil {
		return err
	}

	// The conflict clause leaves created_at alone: rotating credentials
	// must not reset the document's creation time.
	_, err = s.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, email, password_hash, organization_name, is_active, attributes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::timestamptz, now()))
		 ON CONFLICT (id) DO UPDATE
		 SET email = EXCLUDED.email,
		     password_hash = EXCLUDED.password_hash,
		     organization_name = EXCLUDED.organization_name,
		     is_active = EXCLUDED.is_active,
		     attributes = EXCLUDED.attributes`, ident),
		doc.ID, doc.Email, doc.PasswordHash, doc.Organization, doc.IsActive, attrs, createdAtParam(doc))
	if err != nil {
		return fmt.Errorf("upsert admin in %s: %w", partition, mapError(err))
	}
	return nil
}

func (s *PartitionStore) GetAdminByEmail(ctx context.Context, partition, email string) (*admin.Document, error) {
	ident, err := quoteIdent(partition)
	if err != nil {
		return nil, err
	}

	var doc admin.Document
	var attrs []byte
	err = s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT `+docColumns+` FROM %s WHERE email = $1`, ident), email,
	).Scan(&doc.ID, &doc.Email, &doc.PasswordHash, &doc.Organization,
		&doc.IsActive, &attrs, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get admin %s in %s: %w", email, partition, mapError(err))
	}
	unmarshalAttrs(attrs, &doc)
	return &doc, nil
}

func (s *PartitionStore) ListDocuments(ctx context.Context, partition string) ([]admin.Document, error) {
	ident, err := quoteIdent(partition)
	if err != nil {
		return nil, err
	}
	return s.listDocs(ctx, ident, partition)
}

func (s *PartitionStore) Exists(ctx context.Context, partition string) (bool, error) {
	if _, err := quoteIdent(partition); err != nil {
		return false, err
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_tables WHERE schemaname = 'public' AND tablename = $1)`,
		partition,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check partition %s: %w", partition, mapError(err))
	}
	return exists, nil
}

func (s *PartitionStore) Drop(ctx context.Context, partition string) error {
	ident, err := quoteIdent(partition)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, ident)); err != nil {
		return fmt.Errorf("drop partition %s: %w", partition, mapError(err))
	}
	return nil
}

func (s *PartitionStore) listDocs(ctx context.Context, ident, partition string) ([]admin.Document, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT `+docColumns+` FROM %s ORDER BY created_at ASC`, ident))
	if err != nil {
		return nil, fmt.Errorf("list documents in %s: %w", partition, mapError(err))
	}
	defer rows.Close()

	var docs []admin.Document
	for rows.Next() {
		var doc admin.Document
		var attrs []byte
		if err := rows.Scan(&doc.ID, &doc.Email, &doc.PasswordHash, &doc.Organization,
			&doc.IsActive, &attrs, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		unmarshalAttrs(attrs, &doc)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func insertDoc(ctx context.Context, tx pgx.Tx, ident string, doc *admin.Document) error {
	attrs, err := marshalAttrs(doc.Attributes)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, email, password_hash, organization_name, is_active, attributes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::timestamptz, now()))`, ident),
		doc.ID, doc.Email, doc.PasswordHash, doc.Organization, doc.IsActive, attrs, createdAtParam(doc))
	return err
}

// createdAtParam maps a zero CreatedAt to NULL so fresh seeds take the
// table default while copied documents keep their original timestamp.
func createdAtParam(doc *admin.Document) any {
	if doc.CreatedAt.IsZero() {
		return nil
	}
	return doc.CreatedAt
}

func marshalAttrs(attrs map[string]any) ([]byte, error) {
	if attrs == nil {
		return []byte(`{}`), nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	return b, nil
}

func unmarshalAttrs(b []byte, doc *admin.Document) {
	if len(b) > 0 {
		_ = json.Unmarshal(b, &doc.Attributes)
	}
}
