package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("Should return logger from context when present", func(t *testing.T) {
		expectedLogger := NewLogger(TestConfig())
		ctx := ContextWithLogger(context.Background(), expectedLogger)

		actualLogger := FromContext(ctx)

		require.NotNil(t, actualLogger)
		assert.Equal(t, expectedLogger, actualLogger)
	})

	t.Run("Should return default logger when no logger in context", func(t *testing.T) {
		log := FromContext(context.Background())

		require.NotNil(t, log)
		log.Info("test message from default logger")
	})

	t.Run("Should return default logger when wrong type in context", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), LoggerCtxKey, "not a logger")

		log := FromContext(ctx)

		require.NotNil(t, log)
	})

	t.Run("Should return default logger for nil context", func(t *testing.T) {
		//nolint:staticcheck // exercising the nil-context fallback on purpose
		log := FromContext(nil)

		require.NotNil(t, log)
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	t.Run("Should convert all log levels to charm log levels correctly", func(t *testing.T) {
		testCases := []struct {
			level    LogLevel
			expected int
		}{
			{DebugLevel, -4},
			{InfoLevel, 0},
			{WarnLevel, 4},
			{ErrorLevel, 8},
			{DisabledLevel, 1000},
			{LogLevel("unknown"), 0},
		}
		for _, tc := range testCases {
			actual := tc.level.ToCharmlogLevel()
			assert.Equal(t, tc.expected, int(actual), "LogLevel %s", tc.level)
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should create logger with provided config", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{
			Level:      InfoLevel,
			Output:     &buf,
			TimeFormat: "15:04:05",
		})
		log.Info("test message")

		require.NotNil(t, log)
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("Should use default config when nil config provided", func(t *testing.T) {
		log := NewLogger(nil)

		require.NotNil(t, log)
	})

	t.Run("Should create logger with JSON formatting when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{
			Level:  InfoLevel,
			Output: &buf,
			JSON:   true,
		})
		log.Info("json message", "key", "value")

		assert.Contains(t, buf.String(), `"msg":"json message"`)
	})

	t.Run("Should suppress messages below configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{
			Level:  ErrorLevel,
			Output: &buf,
		})
		log.Info("should not appear")
		log.Error("should appear")

		output := buf.String()
		assert.NotContains(t, output, "should not appear")
		assert.Contains(t, output, "should appear")
	})

	t.Run("Should carry With fields on derived logger", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf})

		log.With("component", "pipeline").Info("derived")

		assert.Contains(t, buf.String(), "pipeline")
	})
}
