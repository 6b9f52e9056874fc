package apply

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/deploymenttheory/go-ups/pkg/app"
	"github.com/deploymenttheory/go-ups/pkg/ups"
)

// Handle processes an apply request. The patch is decoded once and applied to
// every source; a failure on one source does not stop the others. When any
// source fails the response is still returned together with the error.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	// 1. Validate request
	if err := req.Validate(); err != nil {
		return nil, err
	}
	mode, _ := ups.ParseSourceCheck(req.SourceCheck)
	opts := []ups.ApplyOption{ups.WithSourceCheck(mode), ups.WithMaxTargetSize(req.MaxTargetSize)}

	src := req.patchSource()
	ctx.Logf("Loading patch: %s", src)
	ctx.Progress("Decoding patch...", 5)

	// 2. Decode and validate the patch
	patch, err := app.LoadPatch(src)
	if err != nil {
		return nil, err
	}
	logPatch(ctx, patch)
	if mode == ups.SourceCheckIgnore {
		ctx.Warn("source checksum verification is disabled")
	}

	response := &Response{
		RunID:   uuid.NewString(),
		Patch:   app.DescribePatch(src.String(), patch),
		Results: make([]FileResult, len(req.SourcePaths)),
	}
	errs := make([]error, len(req.SourcePaths))

	// 3. Apply to each source, bounded by the requested concurrency
	var mu sync.Mutex
	progress := app.ProgressUpdate{Total: int64(len(req.SourcePaths)), StartedAt: startTime}

	g, gctx := errgroup.WithContext(ctx.Context)
	g.SetLimit(req.Concurrency)
	for i, source := range req.SourcePaths {
		i, source := i, source
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			response.Results[i], errs[i] = applyOne(ctx, patch, source, req.outputFor(source), req.Overwrite, opts)

			mu.Lock()
			defer mu.Unlock()
			progress.Completed++
			progress.ElapsedTime = time.Since(progress.StartedAt)
			ctx.Progress(fmt.Sprintf("Patched %s (%d/%d, %v elapsed)", source,
				progress.Completed, progress.Total, progress.ElapsedTime.Round(time.Millisecond)), progress.Percent())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, app.ClassifyError("patching interrupted", err)
	}

	// 4. Tally results
	for i := range response.Results {
		if response.Results[i].OK() {
			response.Succeeded++
		} else {
			response.Failed++
		}
	}
	response.Duration = time.Since(startTime)

	ctx.Progress("Complete", 100)
	ctx.Logf("Patching completed: %d succeeded, %d failed in %v", response.Succeeded, response.Failed, response.Duration)

	if response.Failed > 0 {
		if len(errs) == 1 {
			return response, errs[0]
		}
		return response, app.NewError(app.ErrCodeApplyFailed,
			fmt.Sprintf("%d of %d files failed to patch", response.Failed, len(errs)), nil)
	}
	return response, nil
}

// applyOne patches a single source file and writes the result
func applyOne(ctx *app.Context, patch *ups.Patch, source, output string, overwrite bool, opts []ups.ApplyOption) (FileResult, error) {
	start := time.Now()
	result := FileResult{Source: source, Output: output}

	fail := func(err error) (FileResult, error) {
		result.Duration = time.Since(start)
		result.ErrorCode = app.ErrorCode(err)
		result.Error = err.Error()
		ctx.Error(fmt.Sprintf("%s: %v", source, err))
		return result, err
	}

	data, err := app.ReadSource(source)
	if err != nil {
		return fail(err)
	}
	result.SourceSize = len(data)
	result.SourceCRC32 = app.FormatCRC(ups.Checksum(data))

	patched, err := patch.Apply(data, opts...)
	if err != nil {
		return fail(app.ClassifyError(fmt.Sprintf("failed to patch %s", source), err))
	}

	if err := app.WriteFileAtomic(output, patched, overwrite); err != nil {
		return fail(err)
	}

	// Apply has already verified the output against the target checksum
	result.OutputSize = len(patched)
	result.OutputCRC32 = app.FormatCRC(patch.TargetChecksum())
	result.Duration = time.Since(start)

	ctx.Logf("Wrote %s (%s)", output, humanize.Bytes(uint64(len(patched))))
	return result, nil
}

// logPatch logs the patch header for verbose output
func logPatch(ctx *app.Context, patch *ups.Patch) {
	if !ctx.Verbose {
		return
	}

	ctx.Log("Patch details:")
	ctx.Logf("  Source: %s (crc32 %s)", humanize.Bytes(patch.SourceSize()), app.FormatCRC(patch.SourceChecksum()))
	ctx.Logf("  Target: %s (crc32 %s)", humanize.Bytes(patch.TargetSize()), app.FormatCRC(patch.TargetChecksum()))
	ctx.Logf("  Records: %d (%s changed)", patch.NumEdits(), humanize.Bytes(patch.ChangedBytes()))
}
