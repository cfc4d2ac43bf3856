// Package cli implements the arkive command line.
package cli

import (
	"log/slog"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version returns the module version recorded in the build info.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "development"
}

// NewRootCmd returns the arkive root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "arkive",
		Short: "Build, list, and compress archives",
		Long: `arkive builds archives (zip, tar, ar, cpio) from directory trees with
update and duplicate policies, lists archive contents (including arj and 7z),
and compresses or decompresses single files.

Destinations such as app.tar.gz are built through the compression format
named by their extension.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Log debug details to stderr")

	root.AddCommand(
		newBuildCmd(),
		newListCmd(),
		newPackCmd(),
		newUnpackCmd(),
		newFormatsCmd(),
	)
	return root
}

// logger returns a text logger on stderr. Info is the default level;
// --verbose lowers it to debug.
func logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
