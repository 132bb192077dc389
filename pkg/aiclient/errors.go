package aiclient

import "errors"

var (
	ErrNoCredentials      = errors.New("at least one API key is required")
	ErrNoModels           = errors.New("at least one model is required")
	ErrEmptyPrompt        = errors.New("prompt must not be empty")
	ErrEmptyResponse      = errors.New("model returned an empty response")
	ErrGeneratorExhausted = errors.New("all models and retries exhausted")
)
