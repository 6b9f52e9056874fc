package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-ups/internal/testutil"
)

func TestLoadPatch(t *testing.T) {
	dir := t.TempDir()
	valid := testutil.BuildPatch([]byte("abc"), []byte("abd"))
	corrupt := append([]byte(nil), valid...)
	corrupt[5] ^= 0x40

	tests := []struct {
		name    string
		path    string
		errCode string
	}{
		{"valid", testutil.WriteFile(t, dir, "ok.ups", valid), ""},
		{"missing file", filepath.Join(dir, "missing.ups"), ErrCodeFileAccess},
		{"not a patch", testutil.WriteFile(t, dir, "readme.txt", []byte("hello, world, not a patch")), ErrCodePatchFormat},
		{"corrupt", testutil.WriteFile(t, dir, "bad.ups", corrupt), ErrCodePatchIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := LoadPatch(PatchSource{Path: tt.path})
			if tt.errCode == "" {
				require.NoError(t, err)
				assert.Equal(t, uint64(3), p.TargetSize())
				return
			}
			assert.Nil(t, p)
			assert.Equal(t, tt.errCode, ErrorCode(err))
		})
	}
}

func TestLoadPatch_Zip(t *testing.T) {
	dir := t.TempDir()
	patch := testutil.BuildPatch([]byte("base"), []byte("bass"))
	other := testutil.BuildPatch([]byte("x"), []byte("yz"))

	wrapped := testutil.WriteFile(t, dir, "wrapped.zip", testutil.BuildZip(t,
		testutil.ZipEntry{Name: "Release v2/"},
		testutil.ZipEntry{Name: "Release v2/readme.txt", Data: []byte("apply to a clean base")},
		testutil.ZipEntry{Name: "Release v2/patches/main.ups", Data: patch},
	))
	flat := testutil.WriteFile(t, dir, "flat.zip", testutil.BuildZip(t,
		testutil.ZipEntry{Name: "readme.txt", Data: []byte("hi")},
		testutil.ZipEntry{Name: "main.ups", Data: patch},
	))
	several := testutil.WriteFile(t, dir, "several.zip", testutil.BuildZip(t,
		testutil.ZipEntry{Name: "a.ups", Data: patch},
		testutil.ZipEntry{Name: "b.UPS", Data: other},
	))
	none := testutil.WriteFile(t, dir, "none.zip", testutil.BuildZip(t,
		testutil.ZipEntry{Name: "readme.txt", Data: []byte("hi")},
	))
	notZip := testutil.WriteFile(t, dir, "plain.ups", patch)

	tests := []struct {
		name       string
		src        PatchSource
		wantTarget uint64
		errCode    string
	}{
		{"entry under stripped parent", PatchSource{Path: wrapped, Entry: "patches/main.ups", StripParentDir: true}, 4, ""},
		{"full entry path", PatchSource{Path: wrapped, Entry: "Release v2/patches/main.ups"}, 4, ""},
		{"leading slash and dot segments", PatchSource{Path: wrapped, Entry: "/patches/../patches/main.ups", StripParentDir: true}, 4, ""},
		{"sole patch found without entry", PatchSource{Path: wrapped}, 4, ""},
		{"flat archive ignores strip", PatchSource{Path: flat, Entry: "main.ups", StripParentDir: true}, 4, ""},
		{"chosen among several", PatchSource{Path: several, Entry: "b.UPS"}, 2, ""},
		{"ambiguous without entry", PatchSource{Path: several}, 0, ErrCodeInvalidInput},
		{"no patch in archive", PatchSource{Path: none}, 0, ErrCodeInvalidInput},
		{"missing entry", PatchSource{Path: wrapped, Entry: "patches/other.ups", StripParentDir: true}, 0, ErrCodeFileAccess},
		{"unstripped entry not found", PatchSource{Path: wrapped, Entry: "patches/main.ups"}, 0, ErrCodeFileAccess},
		{"entry in a non-archive", PatchSource{Path: notZip, Entry: "main.ups"}, 0, ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := LoadPatch(tt.src)
			if tt.errCode != "" {
				assert.Nil(t, p)
				assert.Equal(t, tt.errCode, ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, p.TargetSize())
		})
	}

	assert.Equal(t, wrapped+":patches/main.ups", PatchSource{Path: wrapped, Entry: "patches/main.ups"}.String())
	assert.Equal(t, flat, PatchSource{Path: flat}.String())
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), false))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	err = WriteFileAtomic(path, []byte("second"), false)
	assert.Equal(t, ErrCodeFileAccess, ErrorCode(err))
	data, _ = os.ReadFile(path)
	assert.Equal(t, "first", string(data))

	require.NoError(t, WriteFileAtomic(path, []byte("second"), true))
	data, _ = os.ReadFile(path)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriteFileAtomic_MissingDirectory(t *testing.T) {
	err := WriteFileAtomic(filepath.Join(t.TempDir(), "nope", "out.bin"), []byte("x"), false)
	assert.Equal(t, ErrCodeFileAccess, ErrorCode(err))
}

func TestPatchedName(t *testing.T) {
	tests := []struct {
		source string
		dir    string
		want   string
	}{
		{"roms/base.gba", "", filepath.Join("roms", "base.patched.gba")},
		{"roms/base.gba", "out", filepath.Join("out", "base.patched.gba")},
		{"image", "", "image.patched"},
		{"/data/archive.tar.gz", "/tmp", filepath.Join("/tmp", "archive.tar.patched.gz")},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, PatchedName(tt.source, tt.dir))
		})
	}
}
