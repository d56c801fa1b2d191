package errors

import (
	"errors"
	"fmt"
)

// MalformedResponseError is returned when a generator's output has no
// extractable structured payload.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Reason
}

// NewMalformedResponseError creates a MalformedResponseError with the given reason.
func NewMalformedResponseError(reason string) *MalformedResponseError {
	return &MalformedResponseError{Reason: reason}
}

// IsMalformedResponseError reports whether err is a MalformedResponseError (even when wrapped).
func IsMalformedResponseError(err error) bool {
	var malformed *MalformedResponseError
	return errors.As(err, &malformed)
}

// ProviderUnavailableError wraps a network or service failure of an external source.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s unavailable", e.Provider)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

// NewProviderUnavailableError wraps err as a failure of the named provider.
func NewProviderUnavailableError(provider string, err error) *ProviderUnavailableError {
	return &ProviderUnavailableError{Provider: provider, Err: err}
}

// IsProviderUnavailableError reports whether err is a ProviderUnavailableError (even when wrapped).
func IsProviderUnavailableError(err error) bool {
	var unavailable *ProviderUnavailableError
	return errors.As(err, &unavailable)
}

// ConfigurationMissingError signals that an optional source lacks credentials.
// Callers skip the source instead of failing.
type ConfigurationMissingError struct {
	Setting string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("configuration missing: %s", e.Setting)
}

// NewConfigurationMissingError creates a ConfigurationMissingError for the named setting.
func NewConfigurationMissingError(setting string) *ConfigurationMissingError {
	return &ConfigurationMissingError{Setting: setting}
}

// IsConfigurationMissingError reports whether err is a ConfigurationMissingError (even when wrapped).
func IsConfigurationMissingError(err error) bool {
	var missing *ConfigurationMissingError
	return errors.As(err, &missing)
}
