// Package domain contains the core business entities and rules.
// These types have no knowledge of databases, HTTP, or any infrastructure concerns.
package domain

import (
	"errors"
)

// Errors for common domain-level failures. Input validation failures are
// reported as validation.Errors instead.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenRevoked      = errors.New("token revoked")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrVersionMismatch   = errors.New("version mismatch")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrUpstream          = errors.New("upstream service failure")
	ErrEmptyCollection   = errors.New("no words saved")
)
