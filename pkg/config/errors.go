package config

import "github.com/cockroachdb/errors"

var (
	ErrValidationFailed = errors.New("config validation failed")
	ErrNilConfig        = errors.New("config cannot be nil")
	// ErrNoConfigFile Watch 前必须先 LoadFile
	ErrNoConfigFile = errors.New("no config file loaded")
)
