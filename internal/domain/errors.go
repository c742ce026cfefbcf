// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a uniqueness violation: the organization or its
// partition already exists.
var ErrConflict = errors.New("conflict: resource already exists")

// ErrValidation indicates malformed or rejected input.
var ErrValidation = errors.New("validation failed")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates the caller is authenticated but not allowed to act
// on the target organization.
var ErrForbidden = errors.New("forbidden")

// ErrTokenExpired indicates an access token past its expiry.
var ErrTokenExpired = errors.New("token expired")

// ErrPartialFailure indicates a multi-step lifecycle operation that stopped
// partway across the partition/registry boundary. The wrapped message names
// the organization and the partition left behind.
var ErrPartialFailure = errors.New("partial failure")

// ErrStoreUnavailable indicates the backing store is unreachable.
var ErrStoreUnavailable = errors.New("store unavailable")
