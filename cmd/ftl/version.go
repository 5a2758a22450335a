package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "0.1.0"
	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"
	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.stdout, "ftl %s\n", Version)
			fmt.Fprintf(c.stdout, "Git Commit: %s\n", GitCommit)
			fmt.Fprintf(c.stdout, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(c.stdout, "Go Version: %s\n", runtime.Version())
			fmt.Fprintf(c.stdout, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
