package redis

import "errors"

var (
	// ErrFailedToParseConnString is returned for malformed connection URLs.
	ErrFailedToParseConnString = errors.New("failed to parse redis connection string")

	// ErrNotReady is returned when all connection attempts fail.
	ErrNotReady = errors.New("redis server is not ready")
)
