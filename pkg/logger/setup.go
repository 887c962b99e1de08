package logger

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SetupLogger initializes the default logger from CLI flags.
func SetupLogger(logLevel string, logJSON, logSource bool) {
	var level LogLevel
	switch logLevel {
	case "debug":
		level = DebugLevel
	case "warn":
		level = WarnLevel
	case "error":
		level = ErrorLevel
	default:
		level = InfoLevel
	}
	Init(&Config{
		Level:      level,
		JSON:       logJSON,
		AddSource:  logSource,
		TimeFormat: "15:04:05",
	})
}

// GetLoggerConfig reads the logging flags registered on the command.
func GetLoggerConfig(cmd *cobra.Command) (string, bool, bool, error) {
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return "", false, false, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return "", false, false, fmt.Errorf("failed to get log-json flag: %w", err)
	}
	logSource, err := cmd.Flags().GetBool("log-source")
	if err != nil {
		return "", false, false, fmt.Errorf("failed to get log-source flag: %w", err)
	}
	return logLevel, logJSON, logSource, nil
}
