package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced order or subscription does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation covers malformed or incomplete payloads. The caller may
	// retry with a fixed payload; we never retry on their behalf.
	ErrValidation = errors.New("validation failed")

	// ErrSignatureMismatch is the attacker-facing failure: the supplied
	// signature does not match HMAC(secret, raw_body).
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrSecretNotFound is the operator-facing failure: no shared secret is
	// configured for the (restaurant, channel) pair. Verification fails
	// closed, it is never skipped.
	ErrSecretNotFound = errors.New("channel secret not found")

	// ErrInvalidTransition is returned when a status update would leave the
	// order state machine, including any attempt out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

func NewValidation(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, a...)...)
}

func NewNotFound(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, a...)...)
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsAuthentication(err error) bool { return errors.Is(err, ErrSignatureMismatch) }

// IsConfiguration distinguishes a missing secret (500, page the operators)
// from an attacker-caused signature mismatch (401).
func IsConfiguration(err error) bool { return errors.Is(err, ErrSecretNotFound) }

func IsInvalidTransition(err error) bool { return errors.Is(err, ErrInvalidTransition) }
