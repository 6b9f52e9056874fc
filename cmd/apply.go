package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-ups/internal/config"
	"github.com/deploymenttheory/go-ups/pkg/app"
	"github.com/deploymenttheory/go-ups/pkg/app/apply"
	"github.com/deploymenttheory/go-ups/pkg/ups"
)

var (
	// Output selection (apply command only)
	applyOutput    string
	applyOutputDir string
	applyOverwrite bool

	// Verification and scheduling
	ignoreSourceChecksum bool
	applyConcurrency     int
	applyTimeout         time.Duration
	applyMaxTargetSize   string
)

var applyCmd = &cobra.Command{
	Use:   "apply [patch] [source...]",
	Short: "Apply a UPS patch to one or more files",
	Long: `Apply a UPS patch to one or more source files.

The patch is decoded and validated once. Each source is checked against the
size and checksum recorded in the patch, patched in memory, verified against
the target checksum and only then written out.

Examples:
  # Patch a ROM, writing firered.patched.gba next to it
  go-ups apply revised.ups firered.gba

  # Choose the output file
  go-ups apply revised.ups firered.gba --out revised.gba

  # Patch several copies into a directory
  go-ups apply revised.ups roms/*.gba --out-dir patched/

  # Apply to a file that differs from the expected source
  go-ups apply revised.ups hacked.gba --ignore-source-checksum

  # Use the patch straight from a release archive
  go-ups apply release.zip firered.gba --patch-entry patches/revised.ups`,

	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApply(cmd, args[0], args[1:])
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVar(&applyOutput, "out", "", "output file (single source only)")
	applyCmd.Flags().StringVar(&applyOutputDir, "out-dir", "", "directory for patched files")
	applyCmd.Flags().BoolVar(&applyOverwrite, "overwrite", false, "overwrite existing output files")

	applyCmd.Flags().BoolVar(&ignoreSourceChecksum, "ignore-source-checksum", false, "apply even if the source does not match the patch")
	applyCmd.Flags().IntVarP(&applyConcurrency, "jobs", "j", 0, "files to patch in parallel (default from config)")
	applyCmd.Flags().DurationVar(&applyTimeout, "timeout", 0, "give up after this long (default from config, 0 for no limit)")
	applyCmd.Flags().StringVar(&applyMaxTargetSize, "max-target-size", "", "refuse patches producing more than this, e.g. 256MiB (default from config)")
	addPatchFlags(applyCmd)

	applyCmd.MarkFlagsMutuallyExclusive("out", "out-dir")
}

func runApply(cmd *cobra.Command, patchPath string, sources []string) error {
	// Create application context
	ctx, cancel := newContext(cmd).WithDefaultTimeout(applyTimeout)
	defer cancel()

	mode := settings.SourceCheckMode()
	if ignoreSourceChecksum {
		mode = ups.SourceCheckIgnore
	}
	maxTargetSize := settings.MaxTargetSizeBytes()
	if applyMaxTargetSize != "" {
		n, err := config.ParseSize(applyMaxTargetSize)
		if err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid --max-target-size", err)
		}
		maxTargetSize = n
	}

	// Create apply request; flags override the config file
	request := &apply.Request{
		PatchPath:      patchPath,
		PatchEntry:     patchEntry,
		StripParentDir: getStripParentDir(cmd),
		SourcePaths:    sources,
		OutputPath:     applyOutput,
		OutputDir:      applyOutputDir,
		Overwrite:      applyOverwrite || settings.Overwrite,
		SourceCheck:    mode.String(),
		Concurrency:    settings.Concurrency,
		MaxTargetSize:  maxTargetSize,
	}
	if applyConcurrency > 0 {
		request.Concurrency = applyConcurrency
	}

	// Handle the request through application layer
	response, err := apply.Handle(ctx, request)
	if response == nil {
		return err
	}

	// Format and display results, then report any failure
	if !ctx.Quiet {
		if ferr := apply.FormatOutput(ctx.Stdout, response, ctx.OutputFormat); ferr != nil {
			return ferr
		}
	}
	return err
}
