package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeTokenExpired         = "auth_token_expired"
	TextCodeTokenMalformed       = "auth_token_malformed"
	TextCodeUnauthenticated      = "auth_unauthenticated"
	TextCodeForbidden            = "auth_forbidden"
	TextCodeRegistrationDisabled = "registration_disabled"
	TextCodeIdentityConflict     = "identity_conflict"
	TextCodeDirectoryUnavailable = "directory_unavailable"
	TextCodeInvalidConfig        = "auth_config_invalid"
)

// ErrTokenExpired is returned when a token fails its expiry check.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token cannot be decoded or verified.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated is the uniform failure for any token check. Callers
// never learn which check failed.
var ErrUnauthenticated = errors.New("unauthenticated", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when an authenticated principal fails a policy.
var ErrForbidden = errors.New("forbidden", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrRegistrationDisabled is a hard failure; registration was turned off
// administratively and there is nothing the caller can do to recover.
var ErrRegistrationDisabled = errors.New("registration is disabled", errors.CategoryAuth).
	WithTextCode(TextCodeRegistrationDisabled).
	WithCode(errors.CodeForbidden)

// ErrIdentityConflict is the integrity failure raised when an external
// identity would attach to an account other than the authenticated caller's.
var ErrIdentityConflict = errors.New("identity belongs to a different account", errors.CategoryConflict).
	WithTextCode(TextCodeIdentityConflict).
	WithCode(errors.CodeConflict)

// ErrDirectoryUnavailable signals the external directory could not be
// reached or returned garbage. Retryable, and never to be conflated with
// "user not found".
var ErrDirectoryUnavailable = errors.New("external directory unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeDirectoryUnavailable)

// ErrInvalidConfig is fatal at startup only.
var ErrInvalidConfig = errors.New("invalid auth configuration", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidConfig).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString guards password hashing input.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned for credential mismatches.
var ErrMismatchedHashAndPassword = errors.New("credentials do not match", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// the underlying driver. Both the SQLite and Postgres message shapes are
// covered; the Registrar relies on this to resolve concurrent first logins.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
