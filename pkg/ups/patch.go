// Package ups decodes and applies patches in the UPS (Universal Patching
// System) format.
//
// A UPS patch is laid out as:
//
//	"UPS1"                       magic
//	VLQ source size
//	VLQ target size
//	{VLQ offset, XOR bytes, 0x00} edit records, repeated
//	u32 source CRC32             little endian
//	u32 target CRC32             little endian
//	u32 patch CRC32              over every preceding byte
package ups

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math"
)

// Magic is the four byte marker every UPS patch starts with.
const Magic = "UPS1"

const (
	trailerSize = 12
	// magic, two single byte sizes and the trailer
	minPatchSize = len(Magic) + 2 + trailerSize
)

// Checksum returns the CRC32 (IEEE) of b, the checksum UPS uses throughout.
func Checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// editRecord is one skip-then-XOR unit of a patch body.
type editRecord struct {
	offset uint64 // unchanged bytes to skip before the XOR run
	xor    []byte // XOR run, a sub-slice of the owning patch's raw bytes
}

// Patch is a decoded, validated UPS patch. It is immutable and may be applied
// concurrently from multiple goroutines.
type Patch struct {
	raw []byte

	sourceSize uint64
	targetSize uint64
	edits      []editRecord

	sourceChecksum uint32
	targetChecksum uint32
	patchChecksum  uint32
}

// Decode parses and validates a UPS patch. The patch keeps its own copy of
// raw, so the caller may reuse the slice afterwards.
func Decode(raw []byte) (*Patch, error) {
	if len(raw) < len(Magic) || string(raw[:len(Magic)]) != Magic {
		return nil, &FormatError{Offset: 0, Reason: "not a UPS patch"}
	}
	if len(raw) < minPatchSize {
		return nil, &FormatError{Offset: len(raw), Reason: "truncated trailer"}
	}

	owned := make([]byte, len(raw))
	copy(owned, raw)

	body := len(owned) - trailerSize
	p := &Patch{
		raw:            owned,
		sourceChecksum: binary.LittleEndian.Uint32(owned[body : body+4]),
		targetChecksum: binary.LittleEndian.Uint32(owned[body+4 : body+8]),
		patchChecksum:  binary.LittleEndian.Uint32(owned[body+8:]),
	}

	// Verified before the structure is walked so that corruption anywhere in
	// the header or body is reported as such rather than as a format error.
	if got := Checksum(owned[:len(owned)-4]); got != p.patchChecksum {
		return nil, &IntegrityError{
			Kind:   ChecksumPatch,
			Want:   p.patchChecksum,
			Got:    got,
			Reason: "patch file corrupt",
		}
	}

	pos := len(Magic)
	var err error
	if p.sourceSize, pos, err = decodeHeaderField(owned[:body], pos, "invalid source size"); err != nil {
		return nil, err
	}
	if p.targetSize, pos, err = decodeHeaderField(owned[:body], pos, "invalid target size"); err != nil {
		return nil, err
	}
	if p.targetSize > math.MaxInt {
		return nil, &FormatError{Offset: pos, Reason: "target size exceeds addressable memory"}
	}

	for pos < body {
		offset, n, err := DecodeVLQ(owned[pos:body])
		if err != nil {
			return nil, &FormatError{Offset: pos, Reason: "invalid record offset", Err: err}
		}
		pos += n

		end := bytes.IndexByte(owned[pos:body], 0)
		if end < 0 {
			return nil, &FormatError{Offset: pos, Reason: "unterminated record"}
		}
		p.edits = append(p.edits, editRecord{
			offset: offset,
			xor:    owned[pos : pos+end : pos+end],
		})
		pos += end + 1
	}

	return p, nil
}

func decodeHeaderField(body []byte, pos int, reason string) (uint64, int, error) {
	v, n, err := DecodeVLQ(body[pos:])
	if err != nil {
		return 0, pos, &FormatError{Offset: pos, Reason: reason, Err: err}
	}
	return v, pos + n, nil
}

// SourceSize returns the size of the buffer the patch expects as input.
func (p *Patch) SourceSize() uint64 { return p.sourceSize }

// TargetSize returns the size of the buffer Apply produces.
func (p *Patch) TargetSize() uint64 { return p.targetSize }

// SourceChecksum returns the CRC32 the source buffer is expected to have.
func (p *Patch) SourceChecksum() uint32 { return p.sourceChecksum }

// TargetChecksum returns the CRC32 of the patched output.
func (p *Patch) TargetChecksum() uint32 { return p.targetChecksum }

// PatchChecksum returns the CRC32 stored in the last four bytes of the patch.
func (p *Patch) PatchChecksum() uint32 { return p.patchChecksum }

// Len returns the size of the encoded patch in bytes.
func (p *Patch) Len() int { return len(p.raw) }

// Bytes returns a copy of the encoded patch.
func (p *Patch) Bytes() []byte {
	b := make([]byte, len(p.raw))
	copy(b, p.raw)
	return b
}

// NumEdits returns the number of edit records in the patch body.
func (p *Patch) NumEdits() int { return len(p.edits) }

// ChangedBytes returns the total number of XOR bytes across all records.
func (p *Patch) ChangedBytes() uint64 {
	var n uint64
	for _, e := range p.edits {
		n += uint64(len(e.xor))
	}
	return n
}
