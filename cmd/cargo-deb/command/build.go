package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cargo-deb-go/cargo-deb/pkg/assets"
	"github.com/cargo-deb-go/cargo-deb/pkg/cargobuild"
	"github.com/cargo-deb-go/cargo-deb/pkg/config"
	pkgerrors "github.com/cargo-deb-go/cargo-deb/pkg/errors"
	"github.com/cargo-deb-go/cargo-deb/pkg/logger"
	"github.com/cargo-deb-go/cargo-deb/pkg/manifest"
	"github.com/cargo-deb-go/cargo-deb/pkg/pipeline"
)

func newBuildCommand() *cobra.Command {
	var opts config.BuildOptions

	var listAssets bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a .deb (and dbgsym .ddeb) package from a Cargo manifest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listAssets {
				return runListAssets(opts)
			}

			opts.DebRevisionSet = cmd.Flags().Changed("deb-revision")

			if opts.Dbgsym {
				opts.SeparateDebugSymbols = true
			}

			result, err := pipeline.BuildPackage(context.Background(), opts)
			if err != nil {
				return logAndReturn(err)
			}

			fmt.Println(result.DebPath)

			if result.DdebPath != "" {
				fmt.Println(result.DdebPath)
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.ManifestPath, "manifest-path", "Cargo.toml", "path to the crate's Cargo.toml")
	flags.StringVar(&opts.Variant, "variant", "", "named [package.metadata.deb.variants.<name>] overlay to apply")
	flags.StringVar(&opts.Target, "target", "", "Rust target triple to build for (defaults to the host)")
	flags.StringVar(&opts.Profile, "profile", "release", "cargo build profile")
	flags.StringVarP(&opts.OutputDir, "output", "o", "", "directory to write the .deb/.ddeb to (default target/debian)")
	flags.BoolVar(&opts.NoStrip, "no-strip", false, "keep debug info in the shipped binaries instead of stripping it")
	flags.StringVar(&opts.CompressType, "compress-type", "gzip", "data/control archive compression: gzip or xz")
	flags.BoolVar(&opts.CompressSystem, "compress-system", false, "shell out to the system gzip/xz binary instead of the linked library")
	flags.BoolVar(&opts.Rsyncable, "rsyncable", false, "pass --rsyncable to the system gzip binary")
	flags.StringVar(&opts.DebVersion, "deb-version", "", "override the package version")
	flags.StringVar(&opts.DebRevision, "deb-revision", "", "override the package revision (pass \"\" to omit it)")
	flags.StringVar(&opts.Maintainer, "maintainer", "", "override the package maintainer (metadata, then Cargo.toml authors, is used otherwise)")
	flags.BoolVar(&opts.SeparateDebugSymbols, "separate-debug-symbols", false, "detach debug info from binaries into a companion .debug file")
	flags.BoolVar(&opts.Dbgsym, "dbgsym", false, "route detached debug info to a -dbgsym.ddeb sibling package (implies --separate-debug-symbols)")
	flags.StringVar(&opts.CompressDebugSymbols, "compress-debug-symbols", "", "compress detached debug sections: zlib or zstd (requires --separate-debug-symbols)")
	flags.Int64Var(&opts.SourceDateEpoch, "source-date-epoch", 0, "unix timestamp used for reproducible archive timestamps")
	flags.BoolVar(&listAssets, "list-assets", false, "print the resolved asset plan without building")

	return cmd
}

func runListAssets(opts config.BuildOptions) error {
	cargoToml, err := manifest.Parse(opts.ManifestPath)
	if err != nil {
		return logAndReturn(err)
	}

	desc, err := config.Resolve(cargoToml, nil, opts)
	if err != nil {
		return logAndReturn(err)
	}

	artifacts, err := cargobuild.Build(context.Background(), cargobuild.Options{Target: opts.Target, Profile: opts.Profile})
	if err != nil {
		return logAndReturn(err)
	}

	resolved, err := assets.Expand(".", desc.Assets, cargobuild.BinaryPaths(artifacts))
	if err != nil {
		return logAndReturn(err)
	}

	for _, a := range resolved {
		fmt.Printf("%s -> %s (mode %o)\n", a.SourcePath, a.DestPath, a.Mode)
	}

	return nil
}

func logAndReturn(err error) error {
	var packErr *pkgerrors.PackError
	if errors.As(err, &packErr) {
		logger.Logger.Error(packErr.Message, logger.Logger.Args(
			"kind", packErr.Kind,
			"operation", packErr.Operation,
		))
	}

	return err
}
