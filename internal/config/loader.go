// Package config provides configuration loading for rulecore.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for rulecore.yaml/.yml in
// standard locations. The search requires an explicit YAML extension to
// avoid matching the rulecore binary itself, which Viper's built-in
// SetConfigName would otherwise match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		viper.SetConfigName("rulecore")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: RULECORE_RULES_DIR, RULECORE_LOG_LEVEL, ...
	viper.SetEnvPrefix("RULECORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindEnvKeys()
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{".", filepath.Join(home, ".rulecore")}
	if runtime.GOOS == "windows" {
		// %ProgramData%\rulecore (typically C:\ProgramData\rulecore)
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "rulecore"))
		}
	} else {
		paths = append(paths, "/etc/rulecore")
	}
	return findConfigFileInPaths(paths)
}

func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "rulecore"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

func bindEnvKeys() {
	_ = viper.BindEnv("rules_dir")
	_ = viper.BindEnv("storage_backend")
	_ = viper.BindEnv("priority_tie_breaking")
	_ = viper.BindEnv("max_evaluation_time_ms")
	_ = viper.BindEnv("engine_version")
	_ = viper.BindEnv("log_level")
	_ = viper.BindEnv("mcp_addr")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, and validates the result.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file found; continue with env vars and defaults only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was
// loaded, or an empty string if none was found (env vars/defaults only).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
