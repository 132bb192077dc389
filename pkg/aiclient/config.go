package aiclient

import "time"

// Config holds AI provider settings.
//
// Models is an ordered fallback chain: the first entry is the preferred
// model, later entries are tried when it keeps failing. APIKeys accepts
// multiple keys for rate-limit spreading.
type Config struct {
	BaseURL        string        `env:"AI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKeys        []string      `env:"AI_API_KEYS,required" envSeparator:","`
	Models         []string      `env:"AI_MODELS" envDefault:"gpt-4o-mini,gpt-4o" envSeparator:","`
	Temperature    float64       `env:"AI_TEMPERATURE" envDefault:"0.2"`
	RequestTimeout time.Duration `env:"AI_REQUEST_TIMEOUT" envDefault:"60s"`
	MaxAttempts    int           `env:"AI_MAX_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"AI_RETRY_BASE_DELAY" envDefault:"500ms"`
}
