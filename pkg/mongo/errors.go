package mongo

import "errors"

var (
	// ErrFailedToConnect is returned when the client cannot reach the
	// MongoDB server within the configured retry budget.
	ErrFailedToConnect = errors.New("failed to connect to mongodb")
)
