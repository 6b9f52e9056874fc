// Package testutil builds UPS fixtures for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/deploymenttheory/go-ups/pkg/ups"
)

// BuildPatch returns a UPS patch turning source into target.
func BuildPatch(source, target []byte) []byte {
	at := func(i int) byte {
		if i < len(source) {
			return source[i]
		}
		return 0
	}

	b := []byte(ups.Magic)
	b = ups.AppendVLQ(b, uint64(len(source)))
	b = ups.AppendVLQ(b, uint64(len(target)))

	last := 0
	for i := 0; i < len(target); {
		if at(i) == target[i] {
			i++
			continue
		}
		b = ups.AppendVLQ(b, uint64(i-last))
		for i < len(target) && at(i) != target[i] {
			b = append(b, at(i)^target[i])
			i++
		}
		b = append(b, 0)
		i++
		last = i
	}

	b = binary.LittleEndian.AppendUint32(b, ups.Checksum(source))
	b = binary.LittleEndian.AppendUint32(b, ups.Checksum(target))
	return binary.LittleEndian.AppendUint32(b, ups.Checksum(b))
}

// WriteFile writes data to name inside dir and returns the full path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// ZipEntry is one file of an archive built by BuildZip. A name ending in a
// slash adds a directory.
type ZipEntry struct {
	Name string
	Data []byte
}

// BuildZip returns a zip archive holding entries in order.
func BuildZip(t testing.TB, entries ...ZipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			t.Fatalf("failed to add %s to archive: %v", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			t.Fatalf("failed to write %s to archive: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish archive: %v", err)
	}
	return buf.Bytes()
}
