package cmd

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/go-drift/drift-spine/pkg/assets"
	"github.com/go-drift/drift-spine/pkg/logger"
)

func newAssetsCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "assets",
		Short: "Scan and validate packaged skeletons",
	}
	c.AddCommand(newAssetsScanCommand(a), newAssetsValidateCommand(a))
	return c
}

func newAssetsScanCommand(a *app) *cobra.Command {
	var write bool
	c := &cobra.Command{
		Use:   "scan",
		Short: "List atlas/skeleton pairs under the asset root",
		Long: `Scan the asset root for .atlas files with a matching .skel or .json
skeleton. With --write the result replaces the asset manifest.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			root := a.projectPath(a.cfg.AssetsRoot)
			m, unpaired, err := assets.Scan(a.fs, root)
			if err != nil {
				return err
			}
			for _, asset := range m.Assets {
				a.out.Field(asset.Name, fmt.Sprintf("%s + %s (%s)", asset.Atlas, asset.Skeleton, asset.SkeletonFormat()))
			}
			for _, atlas := range unpaired {
				a.out.Warning("%s has no matching .skel or .json", atlas)
			}
			if len(m.Assets) == 0 {
				a.out.Warning("no skeletons found under %s", root)
			}
			if !write {
				a.out.Success("found %d assets", len(m.Assets))
				return nil
			}

			data, err := m.Marshal()
			if err != nil {
				return err
			}
			path := a.projectPath(a.cfg.ManifestPath)
			if err := afero.WriteFile(a.fs, path, data, 0o644); err != nil {
				return fmt.Errorf("write manifest: %w", err)
			}
			logger.L.WithField("manifest", path).Debug("asset manifest written")
			a.out.Success("wrote %s (%d assets)", path, len(m.Assets))
			return nil
		},
	}
	c.Flags().BoolVarP(&write, "write", "w", false, "write the asset manifest")
	return c
}

func newAssetsValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every manifest entry exists on disk",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			m, err := assets.Load(a.fs, a.projectPath(a.cfg.ManifestPath))
			if err != nil {
				return err
			}
			err = m.Validate(a.fs, a.projectPath(a.cfg.AssetsRoot))
			var merr *multierror.Error
			switch {
			case errors.As(err, &merr):
				for _, e := range merr.Errors {
					a.out.Failure(e)
				}
				return fmt.Errorf("%d asset problems", len(merr.Errors))
			case err != nil:
				return err
			}
			a.out.Success("%d assets OK", len(m.Assets))
			return nil
		},
	}
}
