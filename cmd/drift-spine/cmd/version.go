package cmd

import (
	"github.com/spf13/cobra"

	"github.com/go-drift/drift-spine/pkg/config"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// Needs no project.
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.initOutput(cmd)
		},
		Run: func(*cobra.Command, []string) {
			a.out.Line("drift-spine %s (built %s)", Version, BuildTime)
			a.out.Line("Spine runtime %s", config.DefaultRuntimeVersion)
		},
	}
}
