package ups

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by Decode or Apply matches exactly one
// of these through errors.Is.
var (
	ErrFormat    = errors.New("ups: malformed patch")
	ErrIntegrity = errors.New("ups: checksum mismatch")
	ErrBounds    = errors.New("ups: patch references offset outside target")
)

// VLQ decoding errors, wrapped by FormatError when they occur inside a patch.
var (
	ErrTruncatedVLQ = errors.New("truncated variable-length integer")
	ErrVLQOverflow  = errors.New("variable-length integer overflows 64 bits")
)

// FormatError reports a structural problem found while decoding a patch.
type FormatError struct {
	Offset int    // byte offset in the patch where decoding failed
	Reason string // short description of the failure
	Err    error  // underlying cause, if any
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ups: %s at offset %d: %v", e.Reason, e.Offset, e.Err)
	}
	return fmt.Sprintf("ups: %s at offset %d", e.Reason, e.Offset)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// ChecksumKind identifies which of the three UPS checksums failed.
type ChecksumKind int

const (
	ChecksumPatch ChecksumKind = iota
	ChecksumSource
	ChecksumTarget
)

func (k ChecksumKind) String() string {
	switch k {
	case ChecksumPatch:
		return "patch"
	case ChecksumSource:
		return "source"
	case ChecksumTarget:
		return "target"
	default:
		return fmt.Sprintf("ChecksumKind(%d)", int(k))
	}
}

// IntegrityError reports a CRC32 mismatch, or a source buffer whose size
// disagrees with the patch header.
type IntegrityError struct {
	Kind   ChecksumKind
	Want   uint32
	Got    uint32
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ups: %s: got %08x want %08x", e.Reason, e.Got, e.Want)
}

// Is reports whether target is ErrIntegrity.
func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// BoundsError reports an edit record that would write outside the target, or
// a target larger than the caller allows. In the latter case Record is -1 and
// Limit holds the configured maximum.
type BoundsError struct {
	Record     int    // index of the offending edit record
	Position   uint64 // cursor position that fell outside the target
	TargetSize uint64
	Limit      uint64
}

func (e *BoundsError) Error() string {
	if e.Limit != 0 {
		return fmt.Sprintf("ups: target size %d exceeds limit %d", e.TargetSize, e.Limit)
	}
	return fmt.Sprintf("ups: patch references offset outside target: record %d at position %d (target size %d)",
		e.Record, e.Position, e.TargetSize)
}

// Is reports whether target is ErrBounds.
func (e *BoundsError) Is(target error) bool { return target == ErrBounds }
