package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	assert.Equal(t, filepath.Join("logs", "markerlab.20260212_213836.log"),
		LogFilePath("logs", "markerlab", start))
	assert.Equal(t, filepath.Join("/var/log/markerlab", "markerlab-serve.20260212_213836.log"),
		LogFilePath("/var/log/markerlab", "markerlab-serve", start))

	// sessions one second apart never share a file
	assert.NotEqual(t, LogFilePath("logs", "markerlab", start),
		LogFilePath("logs", "markerlab", start.Add(time.Second)))
}
