// Package config loads rotctl's layered configuration via viper, in the
// teacher's own style: the first config file found (project, then user
// config dir, then home directory) is read; environment variables override
// it, and built-in defaults fill whatever neither sets.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton. Must be called
// once at application startup, before any Get* call.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Lookup order: project .rotation/config.yaml, then
	// ~/.config/rotctl/config.yaml, then ~/.rotation/config.yaml; only the
	// first file found is read. Precedence: environment variables > that
	// file > defaults.
	configFileSet := false

	// 1. Walk up from CWD to find a project .rotation/config.yaml, so
	// commands work from any subdirectory of a project.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".rotation", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// 2. User config directory.
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "rotctl", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// 3. Home directory.
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".rotation", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Environment variables take precedence over the config file:
	// ROT_DB, ROT_JSON, ROT_ACTOR, ROT_SEQUENCE_CAP, and so on.
	v.SetEnvPrefix("ROT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", "")
	v.SetDefault("json", false)
	v.SetDefault("actor", "")
	v.SetDefault("sequence.cap", 100)
	v.SetDefault("eligibility.property-match", "any")
	v.SetDefault("hits.window-aware-mfr", true)
	v.SetDefault("lock-timeout", "5s")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		slog.Debug("loaded config", "path", v.ConfigFileUsed())
	} else {
		slog.Debug("no config.yaml found; using defaults and environment variables")
	}

	return nil
}

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault    ConfigSource = "default"
	SourceConfigFile ConfigSource = "config_file"
	SourceEnvVar     ConfigSource = "env_var"
	SourceFlag       ConfigSource = "flag"
)

// ConfigOverride represents a detected configuration override.
type ConfigOverride struct {
	Key            string
	EffectiveValue interface{}
	OverriddenBy   ConfigSource
	OriginalSource ConfigSource
	OriginalValue  interface{}
}

// GetValueSource returns the source of a configuration value. Priority
// (highest to lowest): env var > config file > default. Flag overrides are
// handled separately by the CLI layer, since viper doesn't see cobra flags.
func GetValueSource(key string) ConfigSource {
	if v == nil {
		return SourceDefault
	}

	envKey := "ROT_" + strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(key, "-", "_"), ".", "_"))
	if os.Getenv(envKey) != "" {
		return SourceEnvVar
	}
	if v.InConfig(key) {
		return SourceConfigFile
	}
	return SourceDefault
}

// CheckOverrides reports configuration overrides so the CLI can tell the
// operator when an env var or flag is shadowing a config file value.
// flagOverrides maps key to (flag value, whether the flag was explicitly
// set).
func CheckOverrides(flagOverrides map[string]struct {
	Value  interface{}
	WasSet bool
}) []ConfigOverride {
	var overrides []ConfigOverride

	for key, flagInfo := range flagOverrides {
		if !flagInfo.WasSet {
			continue
		}
		source := GetValueSource(key)
		if source != SourceConfigFile && source != SourceEnvVar {
			continue
		}

		var originalValue interface{}
		switch flagInfo.Value.(type) {
		case bool:
			originalValue = GetBool(key)
		case string:
			originalValue = GetString(key)
		case int:
			originalValue = GetInt(key)
		default:
			originalValue = flagInfo.Value
		}

		overrides = append(overrides, ConfigOverride{
			Key:            key,
			EffectiveValue: flagInfo.Value,
			OverriddenBy:   SourceFlag,
			OriginalSource: source,
			OriginalValue:  originalValue,
		})
	}

	return overrides
}

// LogOverride logs a message about a configuration override (caller guards
// on verbose mode).
func LogOverride(override ConfigOverride) {
	var sourceDesc string
	switch override.OriginalSource {
	case SourceConfigFile:
		sourceDesc = "config file"
	case SourceEnvVar:
		sourceDesc = "environment variable"
	default:
		sourceDesc = string(override.OriginalSource)
	}

	var overrideDesc string
	if override.OverriddenBy == SourceFlag {
		overrideDesc = "command-line flag"
	} else {
		overrideDesc = string(override.OverriddenBy)
	}

	fmt.Fprintf(os.Stderr, "config: %s overridden by %s (was: %v from %s, now: %v)\n",
		override.Key, overrideDesc, override.OriginalValue, sourceDesc, override.EffectiveValue)
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value in-process (used by the `rotctl config
// set` command and by tests).
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns every configuration setting as a map, for `rotctl
// config list`.
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// GetActor resolves the identity attributed to emitted events. Priority:
//  1. flagValue (--actor)
//  2. ROT_ACTOR env var / config.yaml actor field (viper handles both)
//  3. git config user.name
//  4. hostname
func GetActor(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if actor := GetString("actor"); actor != "" {
		return actor
	}
	if output, err := exec.Command("git", "config", "user.name").Output(); err == nil {
		if gitUser := strings.TrimSpace(string(output)); gitUser != "" {
			return gitUser
		}
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return "unknown"
}
