package convert

import "errors"

var (
	// ErrConverterFailed is returned when the external tool exits non-zero.
	ErrConverterFailed = errors.New("converter failed")

	// ErrServiceError is returned when the REST endpoint answers with an
	// error document instead of features.
	ErrServiceError = errors.New("service returned an error")

	// ErrTooManyPages is returned when paging does not terminate.
	ErrTooManyPages = errors.New("query exceeded page limit")
)
