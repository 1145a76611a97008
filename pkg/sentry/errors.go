package sentry

import "github.com/cockroachdb/errors"

var (
	ErrInvalidConfig = errors.New("sentry: invalid config")
	ErrNilConfig     = errors.New("sentry: nil config")
	// ErrClientClosed 重复 Close
	ErrClientClosed = errors.New("sentry: client closed")
)
