package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-ups/internal/config"
	"github.com/deploymenttheory/go-ups/pkg/app"
)

var (
	// Global output flags only
	verbose      bool
	quiet        bool
	noColor      bool
	outputFormat string
	configFile   string

	// Loaded in PersistentPreRunE, flags take precedence
	settings *config.Config

	// Patch location flags shared by every command that reads a patch
	patchEntry     string
	stripParentDir bool
)

var rootCmd = &cobra.Command{
	Use:   "go-ups",
	Short: "Apply and inspect UPS binary patches",
	Long: `go-ups applies patches in the UPS (Universal Patching System) format,
as used for ROM hacks and other binary modifications.

Every patch is validated before use: the patch checksum is verified on load,
the source file is checked against the checksum recorded in the patch, and
the patched output is verified before it is written.

Commands:
  apply       Apply a patch to one or more files
  inspect     Show the header, records and checksums of a patch
  verify      Check whether a file is the source a patch expects`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		settings = cfg
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func init() {
	// Only global output control flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured log output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ups-config.yaml in ., ./config, $HOME/.go-ups, /etc/go-ups)")
}

// newContext builds the application context from config and global flags
func newContext(cmd *cobra.Command) *app.Context {
	ctx := app.NewContext()
	if cmd.Context() != nil {
		ctx.Context = cmd.Context()
	}
	ctx.OutputFormat = GetOutputFormat()
	ctx.Verbose = GetVerbose()
	ctx.Quiet = GetQuiet()
	ctx.NoColor = noColor || (settings != nil && settings.NoColor)
	ctx.Stdout = cmd.OutOrStdout()
	ctx.Stderr = cmd.ErrOrStderr()
	if settings != nil {
		ctx.DefaultTimeout = settings.Timeout
	}

	if ctx.Verbose && !ctx.Quiet {
		ctx.SetProgress(func(message string, percent int) {
			fmt.Fprintf(ctx.Stderr, "[%3d%%] %s\n", percent, message)
		})
	}
	return ctx
}

// addPatchFlags registers the flags that locate a patch inside an archive
func addPatchFlags(c *cobra.Command) {
	c.Flags().StringVar(&patchEntry, "patch-entry", "", "path of the patch inside a zip archive")
	c.Flags().BoolVar(&stripParentDir, "strip-parent-dir", true, "resolve --patch-entry below the archive's top-level folder (default from config)")
}

// getStripParentDir returns the flag when given, otherwise the config value
func getStripParentDir(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("strip-parent-dir") || settings == nil {
		return stripParentDir
	}
	return settings.StripParentDir
}

// exitCode maps application error codes to process exit codes
func exitCode(err error) int {
	switch app.ErrorCode(err) {
	case app.ErrCodeInvalidInput:
		return 2
	case app.ErrCodePatchIntegrity, app.ErrCodePatchFormat, app.ErrCodePatchBounds:
		return 3
	default:
		return 1
	}
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}

// GetOutputFormat returns the output format, falling back to the config file
func GetOutputFormat() string {
	if outputFormat != "" {
		return outputFormat
	}
	if settings != nil {
		return settings.OutputFormat
	}
	return "table"
}
