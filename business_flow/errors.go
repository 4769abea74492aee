// Package businessflow contains the core business logic of the scan tracker: redirects, counters and their repair
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// QR code errors
	ErrQRCodeNotFound    = errors.New("qr code not found")
	ErrShortCodeConflict = errors.New("could not allocate a unique short code")

	// Validation errors. Every member wraps ErrValidation.
	ErrValidation             = errors.New("validation failed")
	ErrDestinationURLRequired = fmt.Errorf("%w: destination url is required", ErrValidation)
	ErrInvalidDestinationURL  = fmt.Errorf("%w: destination url must be an absolute http or https url", ErrValidation)
	ErrShortCodeRequired      = fmt.Errorf("%w: short code is required", ErrValidation)
	ErrInvalidTimelinePeriod  = fmt.Errorf("%w: period must be one of days, hours, weeks", ErrValidation)
	ErrInvalidTimelineLimit   = fmt.Errorf("%w: limit must be between 1 and 1000", ErrValidation)
	ErrInvalidScanLimit       = fmt.Errorf("%w: scan_limit must be between 1 and 1000", ErrValidation)
	ErrInvalidPage            = fmt.Errorf("%w: page must be at least 1", ErrValidation)
	ErrInvalidPageSize        = fmt.Errorf("%w: page size must be between 1 and 100", ErrValidation)
	ErrInvalidTimeRange       = fmt.Errorf("%w: time bounds must be RFC3339 or YYYY-MM-DD with the start before the end", ErrValidation)

	// Store errors
	ErrTransientStore = errors.New("store temporarily unavailable")

	// Maintenance errors
	ErrMaintenanceInProgress = errors.New("another maintenance run is in progress")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// newStoreError marks err as transient so callers can tell an outage from a bad request
func newStoreError(code, message string, err error) *BusinessError {
	return NewBusinessError(code, message, fmt.Errorf("%w: %w", ErrTransientStore, err))
}

func IsQRCodeNotFound(err error) bool {
	return errors.Is(err, ErrQRCodeNotFound)
}

func IsShortCodeConflict(err error) bool {
	return errors.Is(err, ErrShortCodeConflict)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsTransientStore(err error) bool {
	return errors.Is(err, ErrTransientStore)
}

func IsMaintenanceInProgress(err error) bool {
	return errors.Is(err, ErrMaintenanceInProgress)
}

// Integrity warning kinds
const (
	WarningDriftDetected = "DRIFT_DETECTED"
	WarningOrphanScans   = "ORPHAN_SCANS"
	WarningResidualDrift = "RESIDUAL_DRIFT"
)
