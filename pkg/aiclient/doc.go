// Package aiclient wraps an OpenAI-compatible chat completions API behind
// the Generator interface, adding API key rotation, retry with exponential
// backoff, and an ordered model fallback chain.
package aiclient
