package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rulecore/rulecore/internal/dsl"
)

var validateCmd = &cobra.Command{
	Use:   "validate <expression>",
	Short: "Validate a condition DSL expression",
	Long: `Parse expression as a condition DSL expression and report any
syntax issues found, without requiring a running store or config file.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	issues := dsl.Validate(args[0])
	if len(issues) == 0 {
		fmt.Println("valid")
		return nil
	}
	for _, issue := range issues {
		fmt.Println(issue)
	}
	return fmt.Errorf("%d issue(s) found", len(issues))
}
