package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-ups/pkg/app"
)

// Request represents a patch inspection request
type Request struct {
	PatchPath      string
	PatchEntry     string
	StripParentDir bool

	// SavePath, when set, receives a copy of the decoded patch. Useful for
	// pulling a verified patch out of an archive.
	SavePath  string
	Overwrite bool
}

// Response describes a decoded patch
type Response struct {
	Patch app.PatchInfo `json:"patch" yaml:"patch"`
	// Growth is TargetSize - SourceSize and may be negative
	Growth  int64  `json:"growth" yaml:"growth"`
	SavedTo string `json:"saved_to,omitempty" yaml:"saved_to,omitempty"`
}

// Validate validates an inspection request
func (r *Request) Validate() error {
	if r.PatchPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "patch path is required", nil)
	}
	return nil
}

// Handle decodes the patch and reports its header, body and trailer. Decoding
// includes the patch self-check, so only verified patches are described or
// saved.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	src := app.PatchSource{Path: req.PatchPath, Entry: req.PatchEntry, StripParentDir: req.StripParentDir}
	ctx.Logf("Inspecting patch: %s", src)
	patch, err := app.LoadPatch(src)
	if err != nil {
		return nil, err
	}

	response := &Response{
		Patch:  app.DescribePatch(src.String(), patch),
		Growth: int64(patch.TargetSize()) - int64(patch.SourceSize()),
	}

	if req.SavePath != "" {
		if err := app.WriteFileAtomic(req.SavePath, patch.Bytes(), req.Overwrite); err != nil {
			return nil, err
		}
		response.SavedTo = req.SavePath
		ctx.Logf("Saved patch to %s", req.SavePath)
	}
	return response, nil
}

// FormatOutput formats inspection results according to output format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(response)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatTable(w io.Writer, response *Response) error {
	p := response.Patch
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Patch:\t%s (%s)\n", p.Path, humanize.Bytes(uint64(p.Size)))
	fmt.Fprintf(tw, "Format:\tUPS1\n")
	fmt.Fprintf(tw, "Source size:\t%s (%s bytes)\n", humanize.Bytes(p.SourceSize), humanize.Comma(int64(p.SourceSize)))
	fmt.Fprintf(tw, "Target size:\t%s (%s bytes)\n", humanize.Bytes(p.TargetSize), humanize.Comma(int64(p.TargetSize)))
	fmt.Fprintf(tw, "Growth:\t%+d bytes\n", response.Growth)
	fmt.Fprintf(tw, "Records:\t%d\n", p.Records)
	fmt.Fprintf(tw, "Changed bytes:\t%s\n", humanize.Comma(int64(p.ChangedBytes)))
	fmt.Fprintf(tw, "Source CRC32:\t%s\n", p.SourceCRC32)
	fmt.Fprintf(tw, "Target CRC32:\t%s\n", p.TargetCRC32)
	fmt.Fprintf(tw, "Patch CRC32:\t%s (verified)\n", p.PatchCRC32)
	if response.SavedTo != "" {
		fmt.Fprintf(tw, "Saved to:\t%s\n", response.SavedTo)
	}

	return tw.Flush()
}
