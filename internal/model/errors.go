package model

import (
	"errors"

	"github.com/rotisserie/eris"
)

// ErrorKind classifies pipeline failures for the caller-facing envelope.
type ErrorKind string

const (
	// KindAddressNotFound means geocoding or footprint lookup failed.
	// User-facing; retryable with a corrected address.
	KindAddressNotFound ErrorKind = "address_not_found"
	// KindImageryUnavailable means no usable satellite data exists for the
	// location. User-facing; retry later.
	KindImageryUnavailable ErrorKind = "imagery_unavailable"
	// KindGeometry means the footprint is degenerate or invalid.
	// Non-retryable; indicates bad upstream data.
	KindGeometry ErrorKind = "geometry_error"
	// KindInternal covers everything else.
	KindInternal ErrorKind = "internal_error"
)

// EstimationError is a typed pipeline failure. Low classification confidence
// is never represented as an error; it is a warning path in the estimate.
type EstimationError struct {
	ErrKind ErrorKind
	Err     error
}

func (e *EstimationError) Error() string {
	return e.Err.Error()
}

func (e *EstimationError) Unwrap() error {
	return e.Err
}

// NewAddressNotFound wraps err as an address-not-found failure.
func NewAddressNotFound(err error) error {
	return &EstimationError{ErrKind: KindAddressNotFound, Err: err}
}

// NewImageryUnavailable wraps err as an imagery-unavailable failure.
func NewImageryUnavailable(err error) error {
	return &EstimationError{ErrKind: KindImageryUnavailable, Err: err}
}

// NewGeometryError wraps err as a degenerate-geometry failure.
func NewGeometryError(err error) error {
	return &EstimationError{ErrKind: KindGeometry, Err: err}
}

// Kind returns the error kind for err, or KindInternal if err carries
// no EstimationError in its chain.
func Kind(err error) ErrorKind {
	var ee *EstimationError
	if errors.As(err, &ee) {
		return ee.ErrKind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && Kind(err) == kind
}

// Internal wraps err as an internal failure with a message.
func Internal(msg string, err error) error {
	return &EstimationError{ErrKind: KindInternal, Err: eris.Wrap(err, msg)}
}
