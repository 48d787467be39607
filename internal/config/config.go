// Package config provides configuration types for rulecore.
//
// The schema is deliberately small: the engine's own operation never reads
// configuration (it is constructed with explicit Go values by its caller),
// so this package exists purely for the cmd/rulecore CLI and any embedder
// that wants the teacher's familiar viper+validator loading convention
// instead of hand-assembling engine options.
package config

import "time"

// Config is the top-level configuration for rulecore.
type Config struct {
	// RulesDir is the directory holding the per-scope rule documents
	// (global.yaml, project.yaml, individual.yaml).
	RulesDir string `yaml:"rules_dir" mapstructure:"rules_dir" validate:"required"`

	// StorageBackend selects the rules.Store implementation: "file" (durable,
	// RulesDir-backed) or "memory" (in-process only, for embedding/tests).
	StorageBackend string `yaml:"storage_backend" mapstructure:"storage_backend" validate:"required,oneof=file memory"`

	// PriorityTieBreaking selects how equal-priority matched rules are
	// ordered and arbitrated.
	PriorityTieBreaking string `yaml:"priority_tie_breaking" mapstructure:"priority_tie_breaking" validate:"required,oneof=fifo lexi first"`

	// MaxEvaluationTimeMs bounds a single evaluate_rules call.
	MaxEvaluationTimeMs int `yaml:"max_evaluation_time_ms" mapstructure:"max_evaluation_time_ms" validate:"required,min=1"`

	// EngineVersion is this engine's own declared version, checked against
	// each loaded ruleset's engine_min_version.
	EngineVersion string `yaml:"engine_version" mapstructure:"engine_version" validate:"required"`

	// LogLevel controls the slog handler's minimum level: debug, info,
	// warn, or error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// MCPAddr is the optional TCP address for `rulecore serve` to additionally
	// listen on for the MCP JSON-RPC tool-surface binding (overridable with
	// --mcp-addr). Empty disables the TCP listener (stdio is always available).
	MCPAddr string `yaml:"mcp_addr" mapstructure:"mcp_addr"`
}

// SetDefaults populates zero-valued fields with the documented defaults
// (SPEC_FULL §6.1).
func (c *Config) SetDefaults() {
	if c.RulesDir == "" {
		c.RulesDir = "./rules"
	}
	if c.StorageBackend == "" {
		c.StorageBackend = "file"
	}
	if c.PriorityTieBreaking == "" {
		c.PriorityTieBreaking = "fifo"
	}
	if c.MaxEvaluationTimeMs == 0 {
		c.MaxEvaluationTimeMs = 1000
	}
	if c.EngineVersion == "" {
		c.EngineVersion = "2.8.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// MaxEvaluationTime returns MaxEvaluationTimeMs as a time.Duration.
func (c *Config) MaxEvaluationTime() time.Duration {
	return time.Duration(c.MaxEvaluationTimeMs) * time.Millisecond
}
