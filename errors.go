package provision

import (
	goerrors "github.com/goliatone/go-errors"
)

// Error text codes used across the provisioning flows.
const (
	TextCodeUserNotFound        = "USER_NOT_FOUND"
	TextCodeProviderNotFound    = "PROVIDER_NOT_FOUND"
	TextCodeDuplicateIdentity   = "DUPLICATE_IDENTITY"
	TextCodeTokenInvalid        = "TOKEN_INVALID"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeInvalidAccountState = "INVALID_ACCOUNT_STATE"
	TextCodeTechnicalFailure    = "TECHNICAL_FAILURE"
)

// ErrUserNotFound is returned when an identifier resolves to no canonical user.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound)

// ErrProviderNotFound is returned when a user's source has no registered provider.
var ErrProviderNotFound = goerrors.New("user provider not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound)

// ErrDuplicateIdentity is returned when a provider rejects a username that
// already exists within its scope.
var ErrDuplicateIdentity = goerrors.New("identity already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity)

// ErrTokenInvalid is returned when a token fails signature or shape checks.
var ErrTokenInvalid = goerrors.New("token is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid)

// ErrTokenExpired is returned when a token is past its expiration.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired)

// ErrInvalidAccountState is returned when a registration flow precondition
// does not hold for the target account.
var ErrInvalidAccountState = goerrors.New("invalid account state", goerrors.CategoryConflict).
	WithTextCode(TextCodeInvalidAccountState)

// IsUserNotFound reports whether err carries the user-not-found code.
func IsUserNotFound(err error) bool { return hasTextCode(err, TextCodeUserNotFound) }

// IsProviderNotFound reports whether err carries the provider-not-found code.
func IsProviderNotFound(err error) bool { return hasTextCode(err, TextCodeProviderNotFound) }

// IsDuplicateIdentity reports whether err carries the duplicate-identity code.
func IsDuplicateIdentity(err error) bool { return hasTextCode(err, TextCodeDuplicateIdentity) }

// IsTokenInvalid reports whether err carries the invalid-token code.
func IsTokenInvalid(err error) bool { return hasTextCode(err, TextCodeTokenInvalid) }

// IsTokenExpired reports whether err carries the expired-token code.
func IsTokenExpired(err error) bool { return hasTextCode(err, TextCodeTokenExpired) }

// IsInvalidAccountState reports whether err carries the invalid-account-state code.
func IsInvalidAccountState(err error) bool { return hasTextCode(err, TextCodeInvalidAccountState) }

// IsTechnicalFailure reports whether err was wrapped as an unexpected
// collaborator fault.
func IsTechnicalFailure(err error) bool { return hasTextCode(err, TextCodeTechnicalFailure) }

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}

func isTaxonomyError(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	switch rich.TextCode {
	case TextCodeUserNotFound,
		TextCodeProviderNotFound,
		TextCodeDuplicateIdentity,
		TextCodeTokenInvalid,
		TextCodeTokenExpired,
		TextCodeInvalidAccountState,
		TextCodeTechnicalFailure:
		return true
	}
	return false
}

func userNotFound(identifier string) error {
	return ErrUserNotFound.Clone().WithMetadata(map[string]any{
		"identifier": identifier,
	})
}

func providerNotFound(source string) error {
	return ErrProviderNotFound.Clone().WithMetadata(map[string]any{
		"source": source,
	})
}

func duplicateIdentity(username string) error {
	return ErrDuplicateIdentity.Clone().WithMetadata(map[string]any{
		"username": username,
	})
}

func invalidAccountState(reason, userID string) error {
	clone := ErrInvalidAccountState.Clone()
	clone.Message = reason
	return clone.WithMetadata(map[string]any{
		"user_id": userID,
	})
}

// technicalFailure wraps an unexpected collaborator fault with enough
// context to diagnose the saga step without exposing secret material.
// Known taxonomy errors pass through unchanged.
func technicalFailure(err error, operation, identifier string) error {
	if err == nil {
		return nil
	}
	if isTaxonomyError(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "user provisioning operation failed").
		WithTextCode(TextCodeTechnicalFailure).
		WithMetadata(map[string]any{
			"operation":  operation,
			"identifier": identifier,
		})
}
