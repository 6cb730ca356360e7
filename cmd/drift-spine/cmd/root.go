// Package cmd implements the drift-spine CLI commands.
//
// The root command resolves the project configuration once (spine.yaml,
// overridden by DRIFT_SPINE_* environment variables and flags) and hands it
// to the subcommands.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-drift/drift-spine/pkg/config"
	"github.com/go-drift/drift-spine/pkg/logger"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// app is the state shared by one command tree.
type app struct {
	v   *viper.Viper
	fs  afero.Fs
	out *printer
	cfg *config.Resolved
}

// NewRootCommand builds the drift-spine command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(afero.NewOsFs())
}

// newRootCommand builds the command tree over fs.
func newRootCommand(fs afero.Fs) *cobra.Command {
	a := &app{v: viper.New(), fs: fs}

	root := &cobra.Command{
		Use:   "drift-spine",
		Short: "Spine animation tooling for Drift apps",
		Long: `drift-spine inspects the Spine skeletons packaged with a Drift app.

It reads spine.yaml from the project root (the nearest directory with a
go.mod unless --dir is given). Every flag can also be set through a
DRIFT_SPINE_ environment variable, e.g. DRIFT_SPINE_LOG_LEVEL=debug.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.String("dir", "", "project directory (default: nearest go.mod)")
	flags.String("log-level", "", "log level, overrides spine.yaml")
	flags.Bool("no-color", false, "disable colored output")
	_ = a.v.BindPFlags(flags)
	a.v.SetEnvPrefix("DRIFT_SPINE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newVersionCommand(a),
		newConfigCommand(a),
		newAssetsCommand(a),
	)
	return root
}

// Execute runs the CLI with os.Args.
func Execute() error {
	root := NewRootCommand()
	err := root.Execute()
	if err != nil {
		newPrinter(root.OutOrStdout(), root.ErrOrStderr()).Error(err)
	}
	return err
}

func (a *app) initOutput(cmd *cobra.Command) {
	if a.v.GetBool("no-color") {
		color.NoColor = true
	}
	a.out = newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.initOutput(cmd)

	dir := a.v.GetString("dir")
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		root, err := config.FindProjectRoot(a.fs, wd)
		if err != nil {
			return err
		}
		dir = root
	}

	cfg, err := config.Resolve(a.fs, dir)
	if err != nil {
		return err
	}
	if lvl := a.v.GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger.SetFormat(cfg.LogFormat)
	a.cfg = cfg

	logger.L.WithField("root", cfg.Root).Debug("configuration resolved")
	return nil
}

// projectPath resolves p against the project root unless it is absolute.
func (a *app) projectPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.cfg.Root, p)
}
