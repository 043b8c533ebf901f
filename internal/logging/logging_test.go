package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithDefaults(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("hello")
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestNewInvalidFormat(t *testing.T) {
	_, err := New(&Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(&Config{
		Level:   "debug",
		Format:  "json",
		File:    path,
		MaxSize: 1,
	})
	require.NoError(t, err)

	logger.Info("file sink test")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "file sink test"))
	assert.True(t, strings.Contains(string(data), `"level":"info"`))
}
