// Package service contains the application services: tenant lifecycle,
// admin authentication, and the drift reconciler.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/orgvault/orgvault/internal/config"
	"github.com/orgvault/orgvault/internal/domain"
	"github.com/orgvault/orgvault/internal/domain/admin"
	"github.com/orgvault/orgvault/internal/domain/org"
	"github.com/orgvault/orgvault/internal/port/cache"
	"github.com/orgvault/orgvault/internal/port/database"
	"github.com/orgvault/orgvault/internal/port/messagequeue"
)

// LifecycleService provisions, renames and deprovisions tenant
// organizations. Every operation keeps the invariant that a registry
// record only ever points at an existing partition; compensation steps
// drop freshly created partitions when a later step fails.
//
// There is no in-process locking. The registry's unique constraint on the
// organization name is the serialization point for concurrent creates and
// renames.
type LifecycleService struct {
	registry   database.Registry
	partitions database.Partitions
	queue      messagequeue.Queue
	cache      cache.Cache
	cfg        *config.Auth
	cacheTTL   time.Duration
}

// NewLifecycleService creates the lifecycle service.
func NewLifecycleService(
	registry database.Registry,
	partitions database.Partitions,
	queue messagequeue.Queue,
	c cache.Cache,
	authCfg *config.Auth,
	cacheTTL time.Duration,
) *LifecycleService {
	return &LifecycleService{
		registry:   registry,
		partitions: partitions,
		queue:      queue,
		cache:      c,
		cfg:        authCfg,
		cacheTTL:   cacheTTL,
	}
}

// lifecycleEvent is the payload published on the orgs.* subjects.
type lifecycleEvent struct {
	Operation    string `json:"operation"`
	Step         string `json:"step,omitempty"`
	Organization string `json:"organization_name"`
	NewName      string `json:"new_organization_name,omitempty"`
	Partition    string `json:"partition_name,omitempty"`
	At           string `json:"at"`
}

// Create provisions a new organization: a fresh partition seeded with the
// admin document, then the registry record. The partition is created first
// so the registry never points at a missing partition; if the registry
// insert fails the partition is dropped again.
func (s *LifecycleService) Create(ctx context.Context, req org.CreateRequest) (*org.Organization, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.registry.GetByName(ctx, req.Name); err == nil {
		return nil, fmt.Errorf("organization %s: %w", req.Name, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	partition := org.PartitionFor(req.Name)
	seed := &admin.Document{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Organization: req.Name,
		IsActive:     true,
	}

	if err := s.partitions.CreateWithSeed(ctx, partition, seed); err != nil {
		return nil, err
	}

	rec := &org.Organization{
		Name:              req.Name,
		PartitionName:     partition,
		AdminID:           seed.ID,
		AdminEmail:        seed.Email,
		AdminPasswordHash: seed.PasswordHash,
		IsActive:          true,
	}

	if err := s.registry.Insert(ctx, rec); err != nil {
		// The partition was just created and holds only the seed; drop it
		// so no orphan remains.
		if dropErr := s.partitions.Drop(ctx, partition); dropErr != nil {
			slog.Error("compensating drop failed", "partition", partition, "error", dropErr)
		}
		return nil, err
	}

	s.invalidate(ctx, rec.Name, rec.AdminEmail)
	s.publish(ctx, messagequeue.SubjectOrgCreated, lifecycleEvent{
		Operation:    "create",
		Organization: rec.Name,
		Partition:    partition,
	})

	slog.Info("organization created", "organization", rec.Name, "partition", partition)
	return rec, nil
}

// Get returns the registry record for an organization name. Inactive
// organizations are reported as not found.
func (s *LifecycleService) Get(ctx context.Context, name string) (*org.Organization, error) {
	if err := org.ValidateName(name); err != nil {
		return nil, err
	}
	rec, err := s.registry.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !rec.IsActive {
		return nil, fmt.Errorf("organization %s is inactive: %w", name, domain.ErrNotFound)
	}
	return rec, nil
}

// List returns every registry record, active and inactive.
func (s *LifecycleService) List(ctx context.Context) ([]org.Organization, error) {
	return s.registry.ListAll(ctx)
}

// Update renames an organization and/or rotates its admin credentials.
// The caller must be the admin of the organization being updated
// (actorOrg comes from verified token claims).
//
// A rename migrates the tenant through a new partition: create new, copy
// all documents rewriting the organization name, update the registry, and
// only then drop the old partition. Writes to the tenant during the copy
// window are not replayed; the tenant should be quiesced while renaming.
// On ErrPartialFailure the rename has committed: the registry names the
// new organization and only the old partition remains to be cleaned up.
func (s *LifecycleService) Update(ctx context.Context, req org.UpdateRequest, actorOrg string) (*org.Organization, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if actorOrg != req.OldName {
		return nil, fmt.Errorf("admin of %s cannot update %s: %w", actorOrg, req.OldName, domain.ErrForbidden)
	}

	cur, err := s.registry.GetByName(ctx, req.OldName)
	if err != nil {
		return nil, err
	}
	if !cur.IsActive {
		return nil, fmt.Errorf("organization %s is inactive: %w", req.OldName, domain.ErrNotFound)
	}

	var newHash string
	if req.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		newHash = string(h)
	}

	if !req.IsRename() {
		return s.updateCredentials(ctx, cur, req.Email, newHash)
	}
	return s.rename(ctx, cur, req.NewName, req.Email, newHash)
}

// updateCredentials rotates the admin email and/or password in place:
// partition document first (authoritative), then the registry snapshot.
func (s *LifecycleService) updateCredentials(ctx context.Context, cur *org.Organization, newEmail, newHash string) (*org.Organization, error) {
	doc, err := s.partitions.GetAdminByEmail(ctx, cur.PartitionName, cur.AdminEmail)
	if err != nil {
		return nil, err
	}

	oldEmail := cur.AdminEmail
	if newEmail != "" {
		doc.Email = newEmail
	}
	if newHash != "" {
		doc.PasswordHash = newHash
	}

	if err := s.partitions.UpsertAdmin(ctx, cur.PartitionName, doc); err != nil {
		return nil, err
	}

	updated := *cur
	updated.AdminEmail = doc.Email
	updated.AdminPasswordHash = doc.PasswordHash
	if err := s.registry.Replace(ctx, cur.Name, &updated); err != nil {
		return nil, fmt.Errorf("registry snapshot after credential update: %w", err)
	}

	s.invalidate(ctx, cur.Name, oldEmail, doc.Email)
	s.publish(ctx, messagequeue.SubjectOrgLifecycle, lifecycleEvent{
		Operation:    "update",
		Step:         "credentials_rotated",
		Organization: cur.Name,
		Partition:    cur.PartitionName,
	})

	slog.Info("admin credentials updated", "organization", cur.Name)
	return &updated, nil
}

// rename runs the partition migration state machine. Steps are logged and
// published so recovery tooling can pick up after a crash.
//
// Failures before the registry update compensate by dropping the new
// partition, leaving the old organization untouched. A failed drop of the
// old partition returns ErrPartialFailure with the registry already naming
// the NEW organization: the old partition is the orphan, and reads and
// logins keep working under the new name.
func (s *LifecycleService) rename(ctx context.Context, cur *org.Organization, newName, newEmail, newHash string) (*org.Organization, error) {
	if _, err := s.registry.GetByName(ctx, newName); err == nil {
		return nil, fmt.Errorf("organization %s: %w", newName, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	oldPartition := cur.PartitionName
	newPartition := org.PartitionFor(newName)
	s.step(ctx, "rename", "started", cur.Name, newName, newPartition)

	if err := s.partitions.CreateWithSeed(ctx, newPartition, nil); err != nil {
		return nil, err
	}
	s.step(ctx, "rename", "partition_created", cur.Name, newName, newPartition)

	adminEmail := cur.AdminEmail
	adminHash := cur.AdminPasswordHash
	if newEmail != "" {
		adminEmail = newEmail
	}
	if newHash != "" {
		adminHash = newHash
	}

	oldAdminEmail := cur.AdminEmail
	_, err := s.partitions.CopyAll(ctx, oldPartition, newPartition, func(doc *admin.Document) {
		doc.Organization = newName
		if doc.ID == cur.AdminID {
			doc.Email = adminEmail
			doc.PasswordHash = adminHash
		}
	})
	if err != nil {
		s.compensateDrop(ctx, newPartition)
		return nil, fmt.Errorf("copy partition data: %w", err)
	}
	s.step(ctx, "rename", "data_copied", cur.Name, newName, newPartition)

	updated := *cur
	updated.Name = newName
	updated.PartitionName = newPartition
	updated.AdminEmail = adminEmail
	updated.AdminPasswordHash = adminHash
	if err := s.registry.Replace(ctx, cur.Name, &updated); err != nil {
		s.compensateDrop(ctx, newPartition)
		return nil, fmt.Errorf("registry update for rename: %w", err)
	}
	s.step(ctx, "rename", "registry_updated", cur.Name, newName, newPartition)

	s.invalidate(ctx, cur.Name, oldAdminEmail, adminEmail)

	if err := s.partitions.Drop(ctx, oldPartition); err != nil {
		// The registry already points at the new partition, so reads and
		// logins are consistent. The old partition is orphaned until an
		// operator or the reconciler removes it.
		slog.Error("old partition drop failed after rename",
			"organization", newName, "orphan", oldPartition, "error", err)
		return &updated, fmt.Errorf("rename %s -> %s left orphan partition %s: %w",
			cur.Name, newName, oldPartition, domain.ErrPartialFailure)
	}
	s.step(ctx, "rename", "old_dropped", cur.Name, newName, newPartition)

	s.publish(ctx, messagequeue.SubjectOrgRenamed, lifecycleEvent{
		Operation:    "rename",
		Organization: cur.Name,
		NewName:      newName,
		Partition:    newPartition,
	})

	slog.Info("organization renamed", "from", cur.Name, "to", newName)
	return &updated, nil
}

// Delete deprovisions an organization: partition first, then the registry
// record. A registry delete failure leaves a dangling record that the
// reconciliation sweep will flag.
func (s *LifecycleService) Delete(ctx context.Context, name, actorOrg string) (*org.Organization, error) {
	if err := org.ValidateName(name); err != nil {
		return nil, err
	}
	if actorOrg != name {
		return nil, fmt.Errorf("admin of %s cannot delete %s: %w", actorOrg, name, domain.ErrForbidden)
	}

	cur, err := s.registry.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := s.partitions.Drop(ctx, cur.PartitionName); err != nil {
		return nil, err
	}
	s.step(ctx, "delete", "partition_dropped", name, "", cur.PartitionName)

	if err := s.registry.DeleteByName(ctx, name); err != nil {
		slog.Error("registry delete failed after partition drop",
			"organization", name, "partition", cur.PartitionName, "error", err)
		return nil, fmt.Errorf("delete %s left dangling registry record: %w", name, domain.ErrPartialFailure)
	}

	s.invalidate(ctx, name, cur.AdminEmail)
	s.publish(ctx, messagequeue.SubjectOrgDeleted, lifecycleEvent{
		Operation:    "delete",
		Organization: name,
		Partition:    cur.PartitionName,
	})

	slog.Info("organization deleted", "organization", name, "partition", cur.PartitionName)
	return cur, nil
}

// step logs and publishes one transition of a multi-step operation.
func (s *LifecycleService) step(ctx context.Context, op, step, name, newName, partition string) {
	slog.Info("lifecycle step", "operation", op, "step", step, "organization", name, "partition", partition)
	s.publish(ctx, messagequeue.SubjectOrgLifecycle, lifecycleEvent{
		Operation:    op,
		Step:         step,
		Organization: name,
		NewName:      newName,
		Partition:    partition,
	})
}

func (s *LifecycleService) compensateDrop(ctx context.Context, partition string) {
	if err := s.partitions.Drop(ctx, partition); err != nil {
		slog.Error("compensating drop failed", "partition", partition, "error", err)
	}
}

// publish sends a lifecycle event best-effort. Event delivery never fails
// the operation itself.
func (s *LifecycleService) publish(ctx context.Context, subject string, ev lifecycleEvent) {
	if s.queue == nil {
		return
	}
	ev.At = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("marshal lifecycle event", "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("publish lifecycle event", "subject", subject, "error", err)
	}
}

// invalidate drops cached registry lookups for the given org name and
// admin emails.
func (s *LifecycleService) invalidate(ctx context.Context, name string, emails ...string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, orgCacheKey(name))
	for _, e := range emails {
		if e != "" {
			_ = s.cache.Delete(ctx, adminCacheKey(e))
		}
	}
}

func orgCacheKey(name string) string    { return "org:name:" + name }
func adminCacheKey(email string) string { return "org:admin:" + email }
