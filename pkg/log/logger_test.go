package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"ERROR", LevelError},
		{"  Debug ", LevelDebug},
		{"", LevelInfo},
		{"nonsense", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.name), "level %q", tt.name)
	}
}

func TestGetLoggerCreatesDefault(t *testing.T) {
	globalLogger = nil
	logger := GetLogger()
	assert.NotNil(t, logger)
	assert.Equal(t, LevelInfo, logger.level)
}

func TestInitLoggerReplacesGlobal(t *testing.T) {
	InitLogger(LevelDebug)
	assert.Equal(t, LevelDebug, GetLogger().level)

	InitLogger(LevelError)
	assert.Equal(t, LevelError, GetLogger().level)
}

func TestSetLevel(t *testing.T) {
	logger := NewLogger(LevelInfo)
	logger.SetLevel(LevelWarn)
	assert.Equal(t, LevelWarn, logger.level)
}
