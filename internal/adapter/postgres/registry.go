package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgvault/orgvault/internal/domain"
	"github.com/orgvault/orgvault/internal/domain/org"
	"github.com/orgvault/orgvault/internal/port/database"
)

// Registry implements database.Registry on the organizations table.
type Registry struct {
	pool *pgxpool.Pool
}

var _ database.Registry = (*Registry)(nil)

// NewRegistry creates a registry store backed by the given pool.
func NewRegistry(pool *pgxpool.Pool) *Registry {
	return &Registry{pool: pool}
}

const orgColumns = `id, organization_name, partition_name, admin_id, admin_email,
	admin_password_hash, is_active, created_at, updated_at`

func (r *Registry) Insert(ctx context.Context, rec *org.Organization) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO organizations
		   (organization_name, partition_name, admin_id, admin_email, admin_password_hash, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		rec.Name, rec.PartitionName, rec.AdminID, rec.AdminEmail, rec.AdminPasswordHash, rec.IsActive,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert organization %s: %w", rec.Name, mapError(err))
	}
	return nil
}

func (r *Registry) GetByName(ctx context.Context, name string) (*org.Organization, error) {
	return r.getOne(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE organization_name = $1`,
		name)
}

func (r *Registry) GetByAdminEmail(ctx context.Context, email string) (*org.Organization, error) {
	return r.getOne(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE admin_email = $1`,
		email)
}

func (r *Registry) getOne(ctx context.Context, query, arg string) (*org.Organization, error) {
	var rec org.Organization
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&rec.ID, &rec.Name, &rec.PartitionName, &rec.AdminID, &rec.AdminEmail,
		&rec.AdminPasswordHash, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get organization %s: %w", arg, mapError(err))
	}
	return &rec, nil
}

func (r *Registry) Replace(ctx context.Context, oldName string, rec *org.Organization) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE organizations
		 SET organization_name = $2, partition_name = $3, admin_id = $4,
		     admin_email = $5, admin_password_hash = $6, is_active = $7,
		     updated_at = now()
		 WHERE organization_name = $1`,
		oldName, rec.Name, rec.PartitionName, rec.AdminID,
		rec.AdminEmail, rec.AdminPasswordHash, rec.IsActive)
	if err != nil {
		return fmt.Errorf("replace organization %s: %w", oldName, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("replace organization %s: %w", oldName, domain.ErrNotFound)
	}
	return nil
}

func (r *Registry) DeleteByName(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM organizations WHERE organization_name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete organization %s: %w", name, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete organization %s: %w", name, domain.ErrNotFound)
	}
	return nil
}

func (r *Registry) ListAll(ctx context.Context) ([]org.Organization, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orgColumns+` FROM organizations ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", mapError(err))
	}
	defer rows.Close()

	var orgs []org.Organization
	for rows.Next() {
		var rec org.Organization
		if err := rows.Scan(
			&rec.ID, &rec.Name, &rec.PartitionName, &rec.AdminID, &rec.AdminEmail,
			&rec.AdminPasswordHash, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, rec)
	}
	return orgs, rows.Err()
}
