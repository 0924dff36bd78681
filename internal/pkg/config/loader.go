package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ConfigLoadResult carries one loaded knob. Value holds the parsed
// value or the default; FallbackApplied is set when the environment
// held something unusable and Warnings says why. Loading never fails a
// process, the pipeline runs on defaults and surfaces the warnings
// through logs and the config metrics.
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// loadEnv reads envKey, parses it with parse and checks it with
// validate. An unset or empty variable silently means the default; a
// set but unusable one falls back with a warning.
func loadEnv[T any](envKey string, defaultValue T, parse func(string) (T, error), validate func(T) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	value, err := parse(raw)
	if err == nil && validate != nil {
		err = validate(value)
	}
	if err != nil {
		return ConfigLoadResult{
			Value: defaultValue,
			Warnings: []string{fmt.Sprintf("Invalid %s=%q: %v, falling back to default '%v'",
				envKey, raw, err, defaultValue)},
			FallbackApplied: true,
		}
	}

	return ConfigLoadResult{Value: value}
}

// LoadEnvString reads a plain string knob. Unset means the default;
// there is no validation, so no fallback can apply.
func LoadEnvString(envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return defaultValue
}

// LoadEnvWithFallback reads a string knob that must pass validator,
// such as a cron schedule or timezone name.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration reads a Go duration string ("30s", "5m", "1h30m").
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt reads a decimal integer.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, strconv.Atoi, validator)
}

// LoadEnvFloat reads a float ("0.7", "1.5").
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}, validator)
}

// LoadEnvBool reads a boolean in any form strconv.ParseBool accepts
// ("1", "t", "true", "0", "f", "false", case-insensitive first letter).
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, strconv.ParseBool, nil)
}
