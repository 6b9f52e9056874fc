package ups

import "math"

// DecodeVLQ decodes one UPS variable-length integer from the start of b and
// returns the value and the number of bytes consumed.
//
// Each byte contributes its low 7 bits at the current shift. A byte with the
// high bit set terminates the number. After every non-terminal byte the shift
// grows by 7 and 1<<shift is added, so every value has exactly one encoding.
func DecodeVLQ(b []byte) (uint64, int, error) {
	var value uint64
	var shift uint

	for i, c := range b {
		if part := uint64(c & 0x7f); part != 0 {
			if shift >= 64 || part > math.MaxUint64>>shift {
				return 0, 0, ErrVLQOverflow
			}
			part <<= shift
			if value > math.MaxUint64-part {
				return 0, 0, ErrVLQOverflow
			}
			value += part
		}

		if c&0x80 != 0 {
			return value, i + 1, nil
		}

		shift += 7
		if shift >= 64 {
			return 0, 0, ErrVLQOverflow
		}
		bit := uint64(1) << shift
		if value > math.MaxUint64-bit {
			return 0, 0, ErrVLQOverflow
		}
		value += bit
	}

	return 0, 0, ErrTruncatedVLQ
}

// AppendVLQ appends the UPS encoding of v to dst. It is the inverse of
// DecodeVLQ.
func AppendVLQ(dst []byte, v uint64) []byte {
	for {
		x := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, 0x80|x)
		}
		dst = append(dst, x)
		v--
	}
}
