package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deploymenttheory/go-ups/pkg/ups"
)

// PatchInfo describes a decoded patch for command output
type PatchInfo struct {
	Path         string `json:"path" yaml:"path"`
	Size         int    `json:"size" yaml:"size"`
	SourceSize   uint64 `json:"source_size" yaml:"source_size"`
	TargetSize   uint64 `json:"target_size" yaml:"target_size"`
	Records      int    `json:"records" yaml:"records"`
	ChangedBytes uint64 `json:"changed_bytes" yaml:"changed_bytes"`
	SourceCRC32  string `json:"source_crc32" yaml:"source_crc32"`
	TargetCRC32  string `json:"target_crc32" yaml:"target_crc32"`
	PatchCRC32   string `json:"patch_crc32" yaml:"patch_crc32"`
}

// DescribePatch builds a PatchInfo from a decoded patch
func DescribePatch(path string, p *ups.Patch) PatchInfo {
	return PatchInfo{
		Path:         path,
		Size:         p.Len(),
		SourceSize:   p.SourceSize(),
		TargetSize:   p.TargetSize(),
		Records:      p.NumEdits(),
		ChangedBytes: p.ChangedBytes(),
		SourceCRC32:  FormatCRC(p.SourceChecksum()),
		TargetCRC32:  FormatCRC(p.TargetChecksum()),
		PatchCRC32:   FormatCRC(p.PatchChecksum()),
	}
}

// FormatCRC renders a CRC32 the way patching tools usually print it
func FormatCRC(crc uint32) string {
	return fmt.Sprintf("%08x", crc)
}

// ProgressUpdate represents progress information
type ProgressUpdate struct {
	Message     string
	Completed   int64
	Total       int64
	StartedAt   time.Time
	ElapsedTime time.Duration
}

// Percent calculates completion percentage
func (p *ProgressUpdate) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int((p.Completed * 100) / p.Total)
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeFileAccess     = "FILE_ACCESS"
	ErrCodePatchFormat    = "PATCH_FORMAT"
	ErrCodePatchIntegrity = "PATCH_INTEGRITY"
	ErrCodePatchBounds    = "PATCH_BOUNDS"
	ErrCodeTimeout        = "TIMEOUT"
	ErrCodeCancelled      = "CANCELLED"
	ErrCodeApplyFailed    = "APPLY_FAILED"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ClassifyError wraps err in a CommonError whose code reflects the class of
// patch failure. Errors that are already CommonErrors are returned as is.
func ClassifyError(message string, err error) *CommonError {
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce
	}

	code := ErrCodeApplyFailed
	switch {
	case errors.Is(err, ups.ErrFormat):
		code = ErrCodePatchFormat
	case errors.Is(err, ups.ErrIntegrity):
		code = ErrCodePatchIntegrity
	case errors.Is(err, ups.ErrBounds):
		code = ErrCodePatchBounds
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		code = ErrCodeCancelled
	}
	return NewError(code, message, err)
}

// ErrorCode returns the code of a CommonError anywhere in err's chain, or an
// empty string.
func ErrorCode(err error) string {
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
