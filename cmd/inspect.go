package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-ups/pkg/app/inspect"
)

var (
	// Copy the verified patch out, e.g. from an archive
	inspectSave      string
	inspectOverwrite bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [patch]",
	Short: "Show the header, records and checksums of a UPS patch",
	Long: `Decode a UPS patch and print what it contains.

The patch checksum is verified while decoding, so a corrupt patch is
reported as an error.

Examples:
  go-ups inspect revised.ups
  go-ups inspect revised.ups -o json

  # Check the patch inside a release archive and save a copy
  go-ups inspect release.zip --patch-entry patches/revised.ups --save revised.ups`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := newContext(cmd)

		response, err := inspect.Handle(ctx, &inspect.Request{
			PatchPath:      args[0],
			PatchEntry:     patchEntry,
			StripParentDir: getStripParentDir(cmd),
			SavePath:       inspectSave,
			Overwrite:      inspectOverwrite || settings.Overwrite,
		})
		if err != nil {
			return err
		}
		if ctx.Quiet {
			return nil
		}
		return inspect.FormatOutput(ctx.Stdout, response, ctx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectSave, "save", "", "write a copy of the verified patch to this file")
	inspectCmd.Flags().BoolVar(&inspectOverwrite, "overwrite", false, "overwrite the --save file if it exists")
	addPatchFlags(inspectCmd)
}
