// Package cmd provides the CLI commands for rulecore.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rulecore/rulecore/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rulecore",
	Short: "rulecore - hierarchical policy/rule engine",
	Long: `rulecore evaluates requests against a hierarchy of rules (global,
project, individual) with priority ordering, inheritance, and a small
condition DSL.

Configuration:
  Config is loaded from rulecore.yaml in the current directory,
  $HOME/.rulecore/, or /etc/rulecore/.

  Environment variables can override config values with the RULECORE_ prefix.
  Example: RULECORE_RULES_DIR=/var/lib/rulecore/rules

Commands:
  serve       Serve the MCP tool surface over stdio or TCP
  evaluate    Evaluate one context against the loaded rules and exit
  validate    Validate a condition DSL expression
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./rulecore.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
