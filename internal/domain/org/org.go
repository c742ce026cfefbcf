// Package org defines the organization registry record and its request types.
package org

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/orgvault/orgvault/internal/domain"
)

// PartitionPrefix is prepended to the organization name to derive the
// partition identifier.
const PartitionPrefix = "org_"

// nameRegex is the organization name grammar. Names are compared
// case-sensitively, exactly as given.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,62}$`)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Organization is the registry record for a tenant. The admin credential
// fields are a denormalized snapshot of the partition's admin document,
// kept so login can resolve the owning organization without scanning
// partitions. The partition's document stays authoritative.
type Organization struct {
	ID                string    `json:"id"`
	Name              string    `json:"organization_name"`
	PartitionName     string    `json:"partition_name"`
	AdminID           string    `json:"admin_id"`
	AdminEmail        string    `json:"admin_email"`
	AdminPasswordHash string    `json:"-"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PartitionFor derives the partition identifier for an organization name.
// The name must already be validated against the name grammar.
func PartitionFor(name string) string {
	return PartitionPrefix + name
}

// ValidateName checks an organization name against the name grammar.
func ValidateName(name string) error {
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: organization name must start with an alphanumeric and contain only alphanumerics, underscores and hyphens (max 63 chars)", domain.ErrValidation)
	}
	return nil
}

// ValidateEmail checks an admin email address.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", domain.ErrValidation)
	}
	return nil
}

// ValidatePassword checks an admin password.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", domain.ErrValidation)
	}
	return nil
}

// CreateRequest is the payload for provisioning a new organization.
type CreateRequest struct {
	Name     string `json:"organization_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks all fields of a create request.
func (r *CreateRequest) Validate() error {
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	return ValidatePassword(r.Password)
}

// UpdateRequest is the payload for renaming an organization or rotating
// its admin credentials. NewName, Email and Password are each optional;
// an empty NewName (or one equal to OldName) updates credentials in place.
type UpdateRequest struct {
	OldName  string `json:"old_organization_name"`
	NewName  string `json:"new_organization_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Validate checks the fields of an update request that are present.
func (r *UpdateRequest) Validate() error {
	if err := ValidateName(r.OldName); err != nil {
		return err
	}
	if r.NewName != "" {
		if err := ValidateName(r.NewName); err != nil {
			return err
		}
	}
	if r.Email != "" {
		r.Email = strings.ToLower(strings.TrimSpace(r.Email))
		if err := ValidateEmail(r.Email); err != nil {
			return err
		}
	}
	if r.Password != "" {
		if err := ValidatePassword(r.Password); err != nil {
			return err
		}
	}
	if r.NewName == "" && r.Email == "" && r.Password == "" {
		return fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}
	return nil
}

// IsRename reports whether the request changes the organization name.
func (r *UpdateRequest) IsRename() bool {
	return r.NewName != "" && r.NewName != r.OldName
}

// DeleteRequest names the organization to deprovision.
type DeleteRequest struct {
	Name string `json:"organization_name"`
}
