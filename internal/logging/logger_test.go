package logging

import (
	"os"
	"path/filepath"
	"testing"

	"handover/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	app := config.AppConfig{Name: "handover", Environment: "test", Version: "1.0.0"}

	t.Run("Defaults", func(t *testing.T) {
		logger, closer, err := New(config.LoggingConfig{}, app)
		require.NoError(t, err)
		require.NotNil(t, logger)
		assert.Nil(t, closer)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})

	t.Run("ParsesLevel", func(t *testing.T) {
		logger, _, err := New(config.LoggingConfig{Level: "DEBUG"}, app)
		require.NoError(t, err)
		assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	})

	t.Run("InvalidLevelFallsBack", func(t *testing.T) {
		logger, _, err := New(config.LoggingConfig{Level: "loudest"}, app)
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})

	t.Run("FileOutput", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		logger, closer, err := New(config.LoggingConfig{Output: "file", FilePath: path}, app)
		require.NoError(t, err)
		require.NotNil(t, closer)

		logger.Info().Msg("started")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"app":"handover"`)
		assert.Contains(t, string(data), "started")
	})

	t.Run("FileOutputWithoutPath", func(t *testing.T) {
		_, _, err := New(config.LoggingConfig{Output: "file"}, app)
		assert.Error(t, err)
	})
}
