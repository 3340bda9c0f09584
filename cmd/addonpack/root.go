// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/nak-tools/addonpack/internal/builder"
	"github.com/nak-tools/addonpack/pkg/types"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree. The root command itself builds an
// archive, so `addonpack <addon-dir> <version>` and `addonpack build ...`
// are the same operation.
func newRootCommand(app *App) *cobra.Command {
	var flags buildFlags

	rootCmd := &cobra.Command{
		Use:   "addonpack <addon-dir> <version>",
		Short: "Package an addon directory into a versioned zip archive",
		Long: TitleStyle.Render("addonpack") + SubtitleStyle.Render(" - Package addons into versioned zip archives") + `

addonpack reads the addon id from addon.json, stages a scratch copy of the
addon directory, prunes Python bytecode caches and writes <id>-<version>.zip
into the working directory. The archive has no wrapper directory: addon.json
sits at its root.

` + SubtitleStyle.Render("Examples:") + `
  addonpack ./spore 1.4.0              Write spore-1.4.0.zip here
  addonpack build ./spore 1.4.0 -o dist
  addonpack validate ./spore           Check the manifest only
  addonpack inspect spore-1.4.0.zip    List archive members
  addonpack install spore-1.4.0.zip    Unpack into the addons directory`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, app, flags, args[0], args[1])
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/addonpack/config.cue)")
	flags.register(rootCmd)

	rootCmd.AddCommand(newBuildCommand(app))
	rootCmd.AddCommand(newValidateCommand(app))
	rootCmd.AddCommand(newInspectCommand(app))
	rootCmd.AddCommand(newInstallCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// exactArgs is cobra.ExactArgs reporting through the builder taxonomy, so a
// wrong argument count exits with ExitInvalidInput.
func exactArgs(n int) cobra.PositionalArgs {
	return rangeArgs(n, n)
}

// rangeArgs is cobra.RangeArgs with the same reporting as exactArgs.
func rangeArgs(minArgs, maxArgs int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) >= minArgs && len(args) <= maxArgs {
			return nil
		}
		reason := fmt.Sprintf("accepts between %d and %d arg(s), received %d", minArgs, maxArgs, len(args))
		if minArgs == maxArgs {
			reason = fmt.Sprintf("accepts %d arg(s), received %d", minArgs, len(args))
		}
		return &builder.UsageError{Reason: reason, Usage: cmd.UseLine()}
	}
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Run executes the command tree with args and returns the process exit code.
func Run(ctx context.Context, args []string, deps Dependencies) types.ExitCode {
	app := NewApp(deps)
	rootCmd := newRootCommand(app)
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, app.verbose)
		}),
	)
	return exitCode(err)
}

// Main runs addonpack with the process arguments and returns the exit code.
func Main() int {
	return Run(context.Background(), os.Args[1:], Dependencies{}).Int()
}

// Execute runs addonpack and exits the process. This is called by main.main().
func Execute() {
	os.Exit(Main())
}
