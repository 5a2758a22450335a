package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ftl/interpreter-go/pkg/ast"
)

func newDumpCmd(c *cli) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "dump <template>",
		Short: "Print the canonical form of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.configure(args[0])
			if err != nil {
				return err
			}
			interp, closeFn, err := cfg.newInterpreter(nil)
			if err != nil {
				return err
			}
			defer closeFn()
			tmpl, err := interp.Loader().Resolve(cfg.name)
			if err != nil {
				return err
			}
			if debug {
				fmt.Fprintln(c.stdout, ast.DebugForm(tmpl.Root))
				return nil
			}
			fmt.Fprintln(c.stdout, tmpl.CanonicalForm())
			return nil
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "print the debug form instead")
	return cmd
}
