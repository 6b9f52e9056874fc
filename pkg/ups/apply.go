package ups

import (
	"fmt"
	"strings"
)

// SourceCheck selects how Apply treats a source buffer that does not match
// the size and checksum recorded in the patch.
type SourceCheck int

const (
	// SourceCheckStrict rejects a mismatching source with an IntegrityError
	// before any output is produced.
	SourceCheckStrict SourceCheck = iota
	// SourceCheckIgnore applies the patch regardless. The target checksum is
	// still verified.
	SourceCheckIgnore
)

func (s SourceCheck) String() string {
	switch s {
	case SourceCheckStrict:
		return "strict"
	case SourceCheckIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("SourceCheck(%d)", int(s))
	}
}

// ParseSourceCheck converts a configuration value into a SourceCheck.
func ParseSourceCheck(s string) (SourceCheck, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return SourceCheckStrict, nil
	case "ignore":
		return SourceCheckIgnore, nil
	default:
		return SourceCheckStrict, fmt.Errorf("invalid source check mode %q (valid: strict, ignore)", s)
	}
}

// DefaultMaxTargetSize is the largest output Apply allocates unless
// WithMaxTargetSize raises the limit.
const DefaultMaxTargetSize = 1 << 30

type applyConfig struct {
	sourceCheck   SourceCheck
	maxTargetSize uint64
}

// ApplyOption configures a single Apply call.
type ApplyOption func(*applyConfig)

// WithSourceCheck sets the source verification mode. The default is
// SourceCheckStrict.
func WithSourceCheck(mode SourceCheck) ApplyOption {
	return func(c *applyConfig) {
		c.sourceCheck = mode
	}
}

// WithMaxTargetSize caps the target size Apply is willing to allocate. A
// patch declaring a larger target fails with a *BoundsError before any memory
// is reserved. Zero selects DefaultMaxTargetSize.
func WithMaxTargetSize(n uint64) ApplyOption {
	return func(c *applyConfig) {
		if n == 0 {
			n = DefaultMaxTargetSize
		}
		c.maxTargetSize = n
	}
}

// CheckSource reports whether source has the size and CRC32 the patch was
// built against. It returns nil or an *IntegrityError of kind ChecksumSource.
func (p *Patch) CheckSource(source []byte) error {
	got := Checksum(source)
	if uint64(len(source)) != p.sourceSize {
		return &IntegrityError{
			Kind:   ChecksumSource,
			Want:   p.sourceChecksum,
			Got:    got,
			Reason: fmt.Sprintf("source size %d does not match patch (want %d)", len(source), p.sourceSize),
		}
	}
	if got != p.sourceChecksum {
		return &IntegrityError{
			Kind:   ChecksumSource,
			Want:   p.sourceChecksum,
			Got:    got,
			Reason: "source checksum does not match patch",
		}
	}
	return nil
}

// Apply patches source and returns a newly allocated target buffer of
// TargetSize bytes. source is never modified and the result never aliases it.
// On error no buffer is returned.
func (p *Patch) Apply(source []byte, opts ...ApplyOption) ([]byte, error) {
	cfg := applyConfig{sourceCheck: SourceCheckStrict, maxTargetSize: DefaultMaxTargetSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	if p.targetSize > cfg.maxTargetSize {
		return nil, &BoundsError{Record: -1, Position: p.targetSize, TargetSize: p.targetSize, Limit: cfg.maxTargetSize}
	}

	if cfg.sourceCheck == SourceCheckStrict {
		if err := p.CheckSource(source); err != nil {
			return nil, err
		}
	}

	// Bytes past the end of source start out as zero.
	output := make([]byte, p.targetSize)
	copy(output, source)

	var position uint64
	for i, e := range p.edits {
		next := position + e.offset
		if next < position || next > p.targetSize {
			return nil, &BoundsError{Record: i, Position: next, TargetSize: p.targetSize}
		}
		position = next

		for _, b := range e.xor {
			if position >= p.targetSize {
				return nil, &BoundsError{Record: i, Position: position, TargetSize: p.targetSize}
			}
			output[position] ^= b
			position++
		}

		// The terminator stands for one unchanged byte. It may land exactly
		// on the end of the target, never past it: position <= targetSize
		// holds here because of the offset check above.
		position++
	}

	if got := Checksum(output); got != p.targetChecksum {
		return nil, &IntegrityError{
			Kind:   ChecksumTarget,
			Want:   p.targetChecksum,
			Got:    got,
			Reason: "patched output checksum mismatch",
		}
	}

	return output, nil
}
