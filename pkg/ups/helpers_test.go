package ups

import "encoding/binary"

// sealPatch appends the source and target checksums and the patch checksum to
// body, which must already start with the magic and header.
func sealPatch(body []byte, sourceCRC, targetCRC uint32) []byte {
	out := append([]byte(nil), body...)
	out = binary.LittleEndian.AppendUint32(out, sourceCRC)
	out = binary.LittleEndian.AppendUint32(out, targetCRC)
	return binary.LittleEndian.AppendUint32(out, Checksum(out))
}

// header starts a patch body with the magic and both sizes.
func header(sourceSize, targetSize uint64) []byte {
	b := []byte(Magic)
	b = AppendVLQ(b, sourceSize)
	return AppendVLQ(b, targetSize)
}

// encodePatch builds a patch turning source into target. It only exists to
// produce fixtures; the XOR runs cover the target length only.
func encodePatch(source, target []byte) []byte {
	at := func(i int) byte {
		if i < len(source) {
			return source[i]
		}
		return 0
	}

	b := header(uint64(len(source)), uint64(len(target)))
	last := 0
	for i := 0; i < len(target); {
		if at(i) == target[i] {
			i++
			continue
		}
		b = AppendVLQ(b, uint64(i-last))
		for i < len(target) && at(i) != target[i] {
			b = append(b, at(i)^target[i])
			i++
		}
		b = append(b, 0)
		i++
		last = i
	}

	return sealPatch(b, Checksum(source), Checksum(target))
}
