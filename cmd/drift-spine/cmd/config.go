package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-drift/drift-spine/pkg/config"
)

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		Long: `Show the configuration drift-spine resolved from spine.yaml, the
environment and flags, with defaults filled in.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			c := a.cfg
			module := c.ModulePath
			if module == "" {
				module = "(no go.mod)"
			}
			a.out.Field("root", c.Root)
			a.out.Field("module", module)
			a.out.Field("runtime version", c.RuntimeVersion)
			a.out.Field("default mix", c.DefaultMix)
			a.out.Field("premultiplied alpha", c.PremultipliedAlpha)
			a.out.Field("debug", c.Debug)
			loop := string(c.LoopMode)
			if c.LoopMode == config.LoopInterval {
				loop = fmt.Sprintf("%s (%s)", loop, c.FrameInterval)
			}
			a.out.Field("loop", loop)
			a.out.Field("log", fmt.Sprintf("%s, %s", c.LogLevel, c.LogFormat))
			a.out.Field("preview", fmt.Sprintf("%dx%d", c.PreviewWidth, c.PreviewHeight))
			a.out.Field("assets", a.projectPath(c.AssetsRoot))
			a.out.Field("manifest", a.projectPath(c.ManifestPath))
			return nil
		},
	}
}
