package errors

import "errors"

// Domain errors
var (
	// Scanner errors
	ErrEndpointNotConfigured = errors.New("scanner endpoint not configured")
	ErrScannerUnavailable    = errors.New("scanner unavailable")
	ErrUnexpectedStatus      = errors.New("scanner returned unexpected status")
	ErrMalformedResponse     = errors.New("malformed scanner response")
	ErrFixtureUnavailable    = errors.New("fixture unavailable")

	// Content feed errors
	ErrFeedUnavailable = errors.New("content feed unavailable")
	ErrMalformedFeed   = errors.New("malformed content feed")

	// Job errors
	ErrJobNotFound      = errors.New("scan job not found")
	ErrTooManyJobs      = errors.New("too many scan jobs running")
	ErrJobManagerClosed = errors.New("scan job manager closed")

	// Validation errors
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrInvalidEndpoint = errors.New("invalid endpoint URL")
	ErrInvalidFormat   = errors.New("unsupported output format")
)
