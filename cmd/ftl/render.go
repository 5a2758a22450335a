package main

import (
	"github.com/spf13/cobra"

	"ftl/interpreter-go/pkg/telemetry"
)

func newRenderCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template to stdout",
		Long: `Render a template to stdout.

Output is streamed, so a failing render leaves the text produced before the
failure on stdout. The failure itself is described on stderr with the
location of every active call.

Examples:
  # Render with a data model
  ftl render page --data data.yaml

  # Walk a document through the handler macros of page
  ftl render page --doc document.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.configure(args[0])
			if err != nil {
				return err
			}
			var metrics *telemetry.RenderMetrics
			if cfg.metricsEnabled {
				metrics = telemetry.NewRenderMetrics(cfg.metricsNamespace, nil)
			}
			interp, closeFn, err := cfg.newInterpreter(metrics)
			if err != nil {
				return err
			}
			defer closeFn()
			return c.render(cfg, interp, c.stdout)
		},
	}
	addInputFlags(cmd, c)
	return cmd
}
