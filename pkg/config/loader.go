package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]any)

	defaultEnvLoaded sync.Once
)

// Load populates cfg from environment variables using `env` struct tags.
// The default .env file is read once per process if present; each unique
// configuration type is parsed once and served from cache afterwards.
func Load[T any](cfg *T) error {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional; a missing file is not an error.
		_ = godotenv.Load()
	})

	if cfg == nil {
		return ErrNilPointer
	}

	key := typeName[T]()

	cacheMu.RLock()
	if cached, ok := cache[key]; ok {
		*cfg = cached.(T)
		cacheMu.RUnlock()
		return nil
	}
	cacheMu.RUnlock()

	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cacheMu.Lock()
	// Another goroutine may have parsed the same type concurrently; keep the
	// first stored copy so every caller observes identical values.
	if cached, ok := cache[key]; ok {
		*cfg = cached.(T)
	} else {
		cache[key] = *cfg
	}
	cacheMu.Unlock()

	return nil
}

// MustLoad works like Load but panics on failure. Intended for configuration
// the process cannot start without.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load %s: %v", typeName[T](), err))
	}
}

// typeName returns a stable cache key for the generic type T.
func typeName[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}
