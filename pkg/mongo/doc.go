// Package mongo provides a thin connection helper around the official
// MongoDB driver with retrying startup and env-based configuration.
package mongo
