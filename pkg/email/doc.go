// Package email sends transactional emails through Postmark, with a
// file-based sender for development environments. Domain notification
// content lives in notifications.go; everything else is transport.
package email
