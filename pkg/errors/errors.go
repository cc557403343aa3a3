package errors

import (
	"errors"
	"fmt"
)

// ServiceError is the base type for all typed errors surfaced by the
// inventory core. Reason is stable and machine-checkable; Message is for
// humans and always names the failing identity.
type ServiceError struct {
	Reason  string
	Message string
	err     error
}

func (e *ServiceError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

const (
	reasonStorageUnavailable   = "StorageUnavailable"
	reasonConstraintViolation  = "ConstraintViolation"
	reasonVerificationMismatch = "VerificationMismatch"
	reasonDeviceNotFound       = "DeviceNotFound"
)

// NewStorageUnavailableError reports a backend that could not be reached or
// failed a round trip. identity is the hostname/address or device id the
// caller was operating on.
func NewStorageUnavailableError(identity string, err error) *ServiceError {
	return &ServiceError{
		Reason:  reasonStorageUnavailable,
		Message: fmt.Sprintf("storage backend unavailable while handling %q", identity),
		err:     err,
	}
}

func IsStorageUnavailableError(err error) bool {
	return hasReason(err, reasonStorageUnavailable)
}

// NewConstraintViolationError reports a uniqueness violation that the
// upsert-by-natural-key contract should have made impossible.
func NewConstraintViolationError(identity string, err error) *ServiceError {
	return &ServiceError{
		Reason:  reasonConstraintViolation,
		Message: fmt.Sprintf("constraint violated for %q", identity),
		err:     err,
	}
}

func IsConstraintViolationError(err error) bool {
	return hasReason(err, reasonConstraintViolation)
}

// NewVerificationMismatchError carries the per-field diagnostics of a failed
// migration verification.
func NewVerificationMismatchError(mismatches []string) *ServiceError {
	return &ServiceError{
		Reason:  reasonVerificationMismatch,
		Message: fmt.Sprintf("migration verification failed: %d mismatched field(s)", len(mismatches)),
		err:     errors.New(joinMismatches(mismatches)),
	}
}

func IsVerificationMismatchError(err error) bool {
	return hasReason(err, reasonVerificationMismatch)
}

func NewDeviceNotFoundError(identity string) *ServiceError {
	return &ServiceError{
		Reason:  reasonDeviceNotFound,
		Message: fmt.Sprintf("device %q not found", identity),
	}
}

func IsDeviceNotFoundError(err error) bool {
	return hasReason(err, reasonDeviceNotFound)
}

func hasReason(err error, reason string) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Reason == reason
	}
	return false
}

func joinMismatches(mismatches []string) string {
	out := ""
	for i, m := range mismatches {
		if i > 0 {
			out += "; "
		}
		out += m
	}
	return out
}
