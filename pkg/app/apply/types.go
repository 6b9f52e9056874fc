package apply

import (
	"time"

	"github.com/deploymenttheory/go-ups/pkg/app"
)

// Request represents a patch application request
type Request struct {
	PatchPath   string
	SourcePaths []string

	// PatchEntry selects the patch inside a zip archive at PatchPath;
	// StripParentDir resolves it below the archive's top-level folder
	PatchEntry     string
	StripParentDir bool

	// Output selection. OutputPath is only valid with a single source;
	// OutputDir collects every output. With neither, outputs are written
	// next to their sources.
	OutputPath string
	OutputDir  string
	Overwrite  bool

	// SourceCheck is "strict" or "ignore"
	SourceCheck string
	Concurrency int

	// MaxTargetSize caps the output size; zero uses ups.DefaultMaxTargetSize
	MaxTargetSize uint64
}

// patchSource returns where the patch is loaded from
func (r *Request) patchSource() app.PatchSource {
	return app.PatchSource{Path: r.PatchPath, Entry: r.PatchEntry, StripParentDir: r.StripParentDir}
}

// Response represents the results of applying a patch
type Response struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Patch     app.PatchInfo `json:"patch" yaml:"patch"`
	Results   []FileResult  `json:"results" yaml:"results"`
	Succeeded int           `json:"succeeded" yaml:"succeeded"`
	Failed    int           `json:"failed" yaml:"failed"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// FileResult represents the outcome for one source file
type FileResult struct {
	Source      string        `json:"source" yaml:"source"`
	Output      string        `json:"output" yaml:"output"`
	SourceSize  int           `json:"source_size" yaml:"source_size"`
	OutputSize  int           `json:"output_size,omitempty" yaml:"output_size,omitempty"`
	SourceCRC32 string        `json:"source_crc32,omitempty" yaml:"source_crc32,omitempty"`
	OutputCRC32 string        `json:"output_crc32,omitempty" yaml:"output_crc32,omitempty"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	ErrorCode   string        `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the file was patched and written
func (f *FileResult) OK() bool {
	return f.Error == ""
}
