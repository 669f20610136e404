package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreLogger(t *testing.T) {
	t.Helper()
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestSetupLogging_File(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "research.log")

	f, err := setupLogging("DEBUG", path)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log.Info().Str("ticker", "AAPL").Msg("snapshot taken")
	log.Trace().Msg("below level")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ticker":"AAPL"`)
	assert.Contains(t, string(data), `"message":"snapshot taken"`)
	assert.NotContains(t, string(data), "below level")
}

func TestSetupLogging_ConsoleOnly(t *testing.T) {
	restoreLogger(t)

	f, err := setupLogging("bogus", "")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
