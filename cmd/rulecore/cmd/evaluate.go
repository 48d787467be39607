package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rulecore/rulecore/internal/config"
	"github.com/rulecore/rulecore/internal/rules"
)

var evaluateContextFile string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one context against the loaded rules and exit",
	Long: `Load the configured rule store, evaluate a single Context against
it, print the resulting Summary as JSON, and exit.

The context is read as JSON from --context-file, or from stdin if that flag
is omitted.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateContextFile, "context-file", "", "path to a JSON-encoded Context (default: stdin)")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	var raw []byte
	if evaluateContextFile != "" {
		raw, err = os.ReadFile(evaluateContextFile)
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read context: %w", err)
	}

	var evalCtx rules.Context
	if err := json.Unmarshal(raw, &evalCtx); err != nil {
		return fmt.Errorf("failed to parse context JSON: %w", err)
	}

	surface, err := buildToolSurface(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to build tool surface: %w", err)
	}

	summary, ruleErr := surface.EvaluateRules(context.Background(), evalCtx)
	if ruleErr != nil {
		return fmt.Errorf("evaluation failed: %s: %s", ruleErr.Code, ruleErr.Message)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
