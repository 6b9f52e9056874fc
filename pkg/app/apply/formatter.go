package apply

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// FormatOutput formats apply results according to output format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatTable formats results as a table
func formatTable(w io.Writer, response *Response) error {
	fmt.Fprintf(w, "Patch: %s (%d records, %s changed)\n\n",
		response.Patch.Path, response.Patch.Records, humanize.Bytes(response.Patch.ChangedBytes))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	// Header
	fmt.Fprintf(tw, "SOURCE\tOUTPUT\tSIZE\tCRC32\tSTATUS\n")
	fmt.Fprintf(tw, "------\t------\t----\t-----\t------\n")

	// Data rows, in request order
	for _, r := range response.Results {
		if r.OK() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\tok\n",
				r.Source, r.Output, humanize.Bytes(uint64(r.OutputSize)), r.OutputCRC32)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t%s\n", r.Source, r.Output, r.ErrorCode)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	// Summary
	fmt.Fprintf(w, "\n%s\n", FormatSummary(response))
	return nil
}

// formatJSON formats results as JSON
func formatJSON(w io.Writer, response *Response) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// formatYAML formats results as YAML
func formatYAML(w io.Writer, response *Response) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(response)
}

// FormatSummary provides a brief summary line
func FormatSummary(response *Response) string {
	total := len(response.Results)
	summary := fmt.Sprintf("Patched %d of %d file", response.Succeeded, total)
	if total != 1 {
		summary += "s"
	}

	var written uint64
	for _, r := range response.Results {
		if r.OK() {
			written += uint64(r.OutputSize)
		}
	}
	summary += fmt.Sprintf(" (%s written)", humanize.Bytes(written))

	if response.Failed > 0 {
		summary += fmt.Sprintf(", %d failed", response.Failed)
	}
	summary += fmt.Sprintf(" in %v", response.Duration)
	return summary
}
