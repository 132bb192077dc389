package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauseguard/clauseguard/pkg/config"
)

type testConfig struct {
	Name  string `env:"CONFIG_TEST_NAME" envDefault:"clauseguard"`
	Port  int    `env:"CONFIG_TEST_PORT" envDefault:"8080"`
	Debug bool   `env:"CONFIG_TEST_DEBUG" envDefault:"false"`
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults when env is unset", func(t *testing.T) {
		var cfg testConfig
		require.NoError(t, config.Load(&cfg))

		assert.Equal(t, "clauseguard", cfg.Name)
		assert.Equal(t, 8080, cfg.Port)
		assert.False(t, cfg.Debug)
	})

	t.Run("serves cached copy on repeated loads", func(t *testing.T) {
		var first, second testConfig
		require.NoError(t, config.Load(&first))

		// Changing the environment after the first load must not change
		// the cached result.
		t.Setenv("CONFIG_TEST_PORT", "9090")
		require.NoError(t, config.Load(&second))

		assert.Equal(t, first, second)
	})

	t.Run("rejects nil pointer", func(t *testing.T) {
		err := config.Load[testConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}
