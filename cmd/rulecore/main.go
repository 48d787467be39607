// Command rulecore runs the hierarchical rule engine: a CLI entry point for
// serving the MCP tool surface, evaluating a context against the loaded
// rules once, and validating a standalone condition expression.
package main

import "github.com/rulecore/rulecore/cmd/rulecore/cmd"

func main() {
	cmd.Execute()
}
