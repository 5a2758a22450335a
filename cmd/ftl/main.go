// Command ftl renders templates stored as YAML AST fixtures.
//
// Usage:
//
//	# Render a template against a YAML data model
//	ftl render page --data data.yaml
//
//	# Dispatch a YAML document through node handler macros
//	ftl render page --doc document.yaml --fallback text
//
//	# Print the canonical form of a template
//	ftl dump page
//
//	# Re-render whenever a template or input file changes
//	ftl watch page --data data.yaml --metrics-addr :9090
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errRenderFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}
