package inspect

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-ups/internal/testutil"
	"github.com/deploymenttheory/go-ups/pkg/app"
	"github.com/deploymenttheory/go-ups/pkg/ups"
)

func TestHandle(t *testing.T) {
	dir := t.TempDir()
	source := bytes.Repeat([]byte{0x11}, 4000)
	target := append(bytes.Repeat([]byte{0x11}, 3000), 0x22, 0x22)
	raw := testutil.BuildPatch(source, target)
	path := testutil.WriteFile(t, dir, "shrink.ups", raw)

	ctx := app.NewContext()
	ctx.Quiet = true

	resp, err := Handle(ctx, &Request{PatchPath: path})
	require.NoError(t, err)
	assert.Empty(t, resp.SavedTo)
	assert.Equal(t, int64(-998), resp.Growth)
	assert.Equal(t, uint64(4000), resp.Patch.SourceSize)
	assert.Equal(t, uint64(3002), resp.Patch.TargetSize)
	assert.Equal(t, 1, resp.Patch.Records)
	assert.Equal(t, uint64(2), resp.Patch.ChangedBytes)
	assert.Equal(t, len(raw), resp.Patch.Size)
	assert.Equal(t, app.FormatCRC(ups.Checksum(target)), resp.Patch.TargetCRC32)
}

func TestHandle_SaveFromArchive(t *testing.T) {
	dir := t.TempDir()
	raw := testutil.BuildPatch([]byte("old title"), []byte("new title!"))
	archive := testutil.WriteFile(t, dir, "release.zip", testutil.BuildZip(t,
		testutil.ZipEntry{Name: "release/"},
		testutil.ZipEntry{Name: "release/hack.ups", Data: raw},
	))
	savePath := filepath.Join(dir, "hack.ups")

	ctx := app.NewContext()
	ctx.Quiet = true
	req := &Request{PatchPath: archive, PatchEntry: "hack.ups", StripParentDir: true, SavePath: savePath}

	resp, err := Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, savePath, resp.SavedTo)
	assert.Equal(t, archive+":hack.ups", resp.Patch.Path)

	saved, err := os.ReadFile(savePath)
	require.NoError(t, err)
	assert.Equal(t, raw, saved)

	// An existing file is kept unless overwriting is requested
	_, err = Handle(ctx, req)
	assert.Equal(t, app.ErrCodeFileAccess, app.ErrorCode(err))

	req.Overwrite = true
	_, err = Handle(ctx, req)
	assert.NoError(t, err)
}

func TestHandle_Errors(t *testing.T) {
	dir := t.TempDir()
	corrupt := testutil.BuildPatch([]byte("abc"), []byte("xyz"))
	corrupt[6] ^= 0x01

	tests := []struct {
		name    string
		path    string
		errCode string
	}{
		{"empty path", "", app.ErrCodeInvalidInput},
		{"missing file", filepath.Join(dir, "missing.ups"), app.ErrCodeFileAccess},
		{"wrong format", testutil.WriteFile(t, dir, "patch.ips", []byte("PATCH\x00\x00\x00EOF")), app.ErrCodePatchFormat},
		{"corrupt", testutil.WriteFile(t, dir, "corrupt.ups", corrupt), app.ErrCodePatchIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := app.NewContext()
			ctx.Quiet = true
			resp, err := Handle(ctx, &Request{PatchPath: tt.path})
			assert.Nil(t, resp)
			assert.Equal(t, tt.errCode, app.ErrorCode(err))
		})
	}
}

func TestFormatOutput(t *testing.T) {
	resp := &Response{
		Patch: app.PatchInfo{
			Path:         "fix.ups",
			Size:         30,
			SourceSize:   1 << 20,
			TargetSize:   1<<20 + 16,
			Records:      3,
			ChangedBytes: 1234,
			SourceCRC32:  "01234567",
			TargetCRC32:  "89abcdef",
			PatchCRC32:   "deadbeef",
		},
		Growth:  16,
		SavedTo: "extracted.ups",
	}

	var table bytes.Buffer
	require.NoError(t, FormatOutput(&table, resp, "table"))
	out := table.String()
	assert.Contains(t, out, "1,048,576 bytes")
	assert.Contains(t, out, "+16 bytes")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "deadbeef (verified)")
	assert.Contains(t, out, "extracted.ups")

	var js bytes.Buffer
	require.NoError(t, FormatOutput(&js, resp, "json"))
	var decoded Response
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, *resp, decoded)

	var yml bytes.Buffer
	require.NoError(t, FormatOutput(&yml, resp, "yaml"))
	assert.Contains(t, yml.String(), "target_crc32: 89abcdef")

	assert.Error(t, FormatOutput(&bytes.Buffer{}, resp, "csv"))
}
