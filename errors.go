package opvault

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrIdentityUnavailable  = errors.New("could not determine the signed-in 1Password identity")
)

// NewIdentityError wraps a failed whoami call.
func NewIdentityError(err error) error {
	return fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
}

// IsInvalidConfiguration reports whether err came from configuration loading or validation.
func IsInvalidConfiguration(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsIdentityUnavailable reports whether err is a failed identity lookup.
func IsIdentityUnavailable(err error) bool {
	return errors.Is(err, ErrIdentityUnavailable)
}
