package httpserver

import "errors"

var (
	// ErrStart indicates the server failed to bind or serve.
	ErrStart = errors.New("httpserver: failed to start")
	// ErrShutdown indicates graceful shutdown did not complete in time.
	ErrShutdown = errors.New("httpserver: graceful shutdown failed")
)
