package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PULSS_"

// Load builds the configuration from defaults, an optional .env file, and
// PULSS_* environment variables (highest precedence), then validates it.
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFilePath, err)
		}
	}
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return transformEnvKey(key), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// transformEnvKey converts environment variable names to koanf paths.
// For example: PULSS_SERVER_PORT -> server.port, PULSS_RATELIMIT_FAIL_OPEN ->
// ratelimit.fail_open. Only the first underscore separates the section from the
// key; the remainder keeps its underscores.
func transformEnvKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	parts := strings.SplitN(key, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}
