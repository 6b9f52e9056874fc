package apply

import (
	"path/filepath"

	"github.com/deploymenttheory/go-ups/pkg/app"
	"github.com/deploymenttheory/go-ups/pkg/ups"
)

// Validate validates an apply request
func (r *Request) Validate() error {
	// Patch and at least one source are required
	if r.PatchPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "patch path is required", nil)
	}
	if len(r.SourcePaths) == 0 {
		return app.NewError(app.ErrCodeInvalidInput, "at least one source file is required", nil)
	}

	// Output selection
	if r.OutputPath != "" && r.OutputDir != "" {
		return app.NewError(app.ErrCodeInvalidInput, "cannot specify both output file and output directory", nil)
	}
	if r.OutputPath != "" && len(r.SourcePaths) > 1 {
		return app.NewError(app.ErrCodeInvalidInput, "output file can only be used with a single source, use an output directory", nil)
	}

	if _, err := ups.ParseSourceCheck(r.SourceCheck); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid source check mode", err)
	}

	if r.Concurrency < 1 || r.Concurrency > 256 {
		return app.NewError(app.ErrCodeInvalidInput, "concurrency must be between 1 and 256", nil)
	}

	// Never write over an input, and never write two outputs to one file
	inputs := map[string]bool{filepath.Clean(r.PatchPath): true}
	for _, source := range r.SourcePaths {
		if source == "" {
			return app.NewError(app.ErrCodeInvalidInput, "source path cannot be empty", nil)
		}
		inputs[filepath.Clean(source)] = true
	}
	seen := make(map[string]string, len(r.SourcePaths))
	for _, source := range r.SourcePaths {
		out := filepath.Clean(r.outputFor(source))
		if inputs[out] {
			return app.NewError(app.ErrCodeInvalidInput, "output "+out+" would overwrite an input file", nil)
		}
		if prev, ok := seen[out]; ok {
			return app.NewError(app.ErrCodeInvalidInput, "sources "+prev+" and "+source+" would both be written to "+out, nil)
		}
		seen[out] = source
	}

	return nil
}

// outputFor returns the output path for source
func (r *Request) outputFor(source string) string {
	if r.OutputPath != "" {
		return r.OutputPath
	}
	return app.PatchedName(source, r.OutputDir)
}
