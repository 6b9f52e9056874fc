package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-ups/pkg/app"
	"github.com/deploymenttheory/go-ups/pkg/ups"
)

// Status summarises how a file relates to a patch
type Status string

const (
	// StatusMatches means the file is the source the patch was built for
	StatusMatches Status = "matches"
	// StatusAlreadyPatched means the file is the patch's target
	StatusAlreadyPatched Status = "already-patched"
	// StatusMismatch means the file is neither
	StatusMismatch Status = "mismatch"
)

// Request represents a source verification request
type Request struct {
	PatchPath      string
	PatchEntry     string
	StripParentDir bool
	SourcePath     string
}

// Response reports whether a source file fits a patch
type Response struct {
	Patch       app.PatchInfo `json:"patch" yaml:"patch"`
	Source      string        `json:"source" yaml:"source"`
	SourceSize  int           `json:"source_size" yaml:"source_size"`
	SourceCRC32 string        `json:"source_crc32" yaml:"source_crc32"`
	Status      Status        `json:"status" yaml:"status"`
	Reason      string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Validate validates a verification request
func (r *Request) Validate() error {
	if r.PatchPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "patch path is required", nil)
	}
	if r.SourcePath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "source path is required", nil)
	}
	return nil
}

// Handle checks the source file against the size and checksum recorded in the
// patch without applying it. A mismatch is reported in the response, not as
// an error.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	src := app.PatchSource{Path: req.PatchPath, Entry: req.PatchEntry, StripParentDir: req.StripParentDir}
	patch, err := app.LoadPatch(src)
	if err != nil {
		return nil, err
	}
	data, err := app.ReadSource(req.SourcePath)
	if err != nil {
		return nil, err
	}

	crc := ups.Checksum(data)
	response := &Response{
		Patch:       app.DescribePatch(src.String(), patch),
		Source:      req.SourcePath,
		SourceSize:  len(data),
		SourceCRC32: app.FormatCRC(crc),
		Status:      StatusMatches,
	}

	err = patch.CheckSource(data)
	var ie *ups.IntegrityError
	switch {
	case err == nil:
		ctx.Logf("%s matches the patch source", req.SourcePath)
	case errors.As(err, &ie):
		response.Status = StatusMismatch
		response.Reason = ie.Reason
		if uint64(len(data)) == patch.TargetSize() && crc == patch.TargetChecksum() {
			response.Status = StatusAlreadyPatched
			response.Reason = "file already matches the patch target"
		}
		ctx.Logf("%s: %s", req.SourcePath, response.Reason)
	default:
		return nil, app.ClassifyError("failed to verify source", err)
	}

	return response, nil
}

// FormatOutput formats verification results according to output format
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
		fmt.Fprintf(w, "Source: %s (%s, crc32 %s)\n",
			response.Source, humanize.Bytes(uint64(response.SourceSize)), response.SourceCRC32)
		fmt.Fprintf(w, "Patch expects: %s, crc32 %s\n",
			humanize.Bytes(response.Patch.SourceSize), response.Patch.SourceCRC32)
		fmt.Fprintf(w, "Status: %s\n", response.Status)
		if response.Reason != "" {
			fmt.Fprintf(w, "Reason: %s\n", response.Reason)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
