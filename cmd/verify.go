package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-ups/pkg/app"
	"github.com/deploymenttheory/go-ups/pkg/app/verify"
)

// allowPatched accepts files that already match the patch target
var allowPatched bool

var verifyCmd = &cobra.Command{
	Use:   "verify [patch] [source]",
	Short: "Check whether a file is the source a patch expects",
	Long: `Compare a file with the source size and checksum recorded in a UPS
patch without applying it. Exits non-zero when the file does not match.
With --quiet only the exit status reports the result.

Examples:
  go-ups verify revised.ups firered.gba
  go-ups verify revised.ups revised.gba --allow-patched`,

	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := newContext(cmd)

		response, err := verify.Handle(ctx, &verify.Request{
			PatchPath:      args[0],
			PatchEntry:     patchEntry,
			StripParentDir: getStripParentDir(cmd),
			SourcePath:     args[1],
		})
		if err != nil {
			return err
		}
		if !ctx.Quiet {
			if err := verify.FormatOutput(ctx.Stdout, response, ctx.OutputFormat); err != nil {
				return err
			}
		}

		switch response.Status {
		case verify.StatusMatches:
			return nil
		case verify.StatusAlreadyPatched:
			if allowPatched {
				return nil
			}
		}
		return app.NewError(app.ErrCodePatchIntegrity,
			fmt.Sprintf("%s does not match the patch source", args[1]), nil)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&allowPatched, "allow-patched", false, "succeed if the file is already patched")
	addPatchFlags(verifyCmd)
}
