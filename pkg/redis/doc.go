// Package redis provides a connection helper around go-redis with retrying
// startup and env-based configuration.
package redis
