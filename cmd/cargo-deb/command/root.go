// Package command implements the cargo-deb CLI, grounded on the teacher's
// cobra root command layout.
package command

import (
	"github.com/spf13/cobra"

	"github.com/cargo-deb-go/cargo-deb/pkg/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "cargo-deb",
	Short: "📦 Build Debian packages from a Cargo project",
	Long: "cargo-deb builds a Debian binary package (and, with --dbgsym, a\n" +
		"matching debug-info package) directly from a\n" +
		"crate's Cargo.toml manifest, without a separate packaging script.",
	Example: `  # Build the current crate for the host architecture
  cargo-deb build

  # Cross-compile and package for a different architecture
  cargo-deb build --target aarch64-unknown-linux-gnu

  # Build a named variant with a different asset/dependency set
  cargo-deb build --variant minimal

  # Preview the resolved asset plan without building
  cargo-deb build --list-assets`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command (its child commands are added in init).
// Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

//nolint:gochecknoinits // required for cobra root command initialization
func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose debug logging")

	rootCmd.AddCommand(newBuildCommand())
}
