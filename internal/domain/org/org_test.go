package org

import (
	"errors"
	"testing"

	"github.com/orgvault/orgvault/internal/domain"
)

func TestPartitionFor(t *testing.T) {
	if got := PartitionFor("acme"); got != "org_acme" {
		t.Errorf("PartitionFor(acme) = %q, want org_acme", got)
	}
}

func TestValidateName(t *testing.T) {
	valid := []string{"a", "acme", "Acme", "acme-corp", "acme_2", "A1-b_c"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "-acme", "_acme", "has space", "acme!", "acme.corp",
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"} // 64 chars
	for _, name := range invalid {
		if err := ValidateName(name); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ValidateName(%q) = %v, want ErrValidation", name, err)
		}
	}
}

func TestCreateRequestValidate(t *testing.T) {
	req := CreateRequest{Name: "acme", Email: " Admin@Acme.IO ", Password: "secret1"}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if req.Email != "admin@acme.io" {
		t.Errorf("email not normalized: %q", req.Email)
	}

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"bad name", CreateRequest{Name: "bad name", Email: "a@b.io", Password: "secret1"}},
		{"bad email", CreateRequest{Name: "acme", Email: "nope", Password: "secret1"}},
		{"short password", CreateRequest{Name: "acme", Email: "a@b.io", Password: "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Validate() = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUpdateRequestValidate(t *testing.T) {
	empty := UpdateRequest{OldName: "acme"}
	if err := empty.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty update should fail validation, got %v", err)
	}

	rename := UpdateRequest{OldName: "acme", NewName: "acme2"}
	if err := rename.Validate(); err != nil {
		t.Errorf("rename Validate() error = %v", err)
	}
	if !rename.IsRename() {
		t.Error("IsRename() should be true for a new name")
	}

	sameName := UpdateRequest{OldName: "acme", NewName: "acme", Password: "rotated"}
	if err := sameName.Validate(); err != nil {
		t.Errorf("same-name Validate() error = %v", err)
	}
	if sameName.IsRename() {
		t.Error("IsRename() should be false when the name is unchanged")
	}

	credsOnly := UpdateRequest{OldName: "acme", Email: "new@acme.io"}
	if err := credsOnly.Validate(); err != nil {
		t.Errorf("credentials-only Validate() error = %v", err)
	}
	if credsOnly.IsRename() {
		t.Error("IsRename() should be false without a new name")
	}
}
